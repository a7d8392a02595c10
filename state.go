package ffs

// RoundState is the position of a single round in the commitment, challenge, response sequence.
type RoundState int

const (
	CommitPending RoundState = iota
	ChallengePending
	ResponsePending
	Verified
	Rejected
)

func (s RoundState) String() string {
	switch s {
	case CommitPending:
		return "commit pending"
	case ChallengePending:
		return "challenge pending"
	case ResponsePending:
		return "response pending"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is the overall result of an authentication attempt. OutcomeFailed is reserved for attempts
// that were aborted by a protocol or transport error, so that those are never mistaken for a
// computed rejection.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
