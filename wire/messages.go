// Package wire defines the messages exchanged by a prover and a verifier running the
// identification protocol over a byte stream, their encodings, and a connection type that
// enforces a timeout on every message.
package wire

import (
	"github.com/privacybydesign/ffs/big"
)

// Message types as they appear in the "type" field.
const (
	TypeHello     = "hello"
	TypeCommit    = "commit"
	TypeChallenge = "challenge"
	TypeResponse  = "response"
	TypeResult    = "result"
	TypeError     = "error"
	TypeDone      = "done"
)

// Roles announced in a hello message.
const (
	RoleProver   = "prover"
	RoleVerifier = "verifier"
)

// Message is one of Hello, Commit, Challenge, Response, Result, Error or Done.
type Message interface {
	Type() string
	isMessage()
}

type (
	// Hello opens a session. The prover announces its role, key name, parameters and a
	// session identifier.
	Hello struct {
		Role    string
		Name    string
		K       int
		T       int
		Session string
	}

	Commit struct {
		Round int
		X     *big.Int
	}

	Challenge struct {
		Round int
		E     []uint
	}

	Response struct {
		Round int
		Y     *big.Int
	}

	// Result carries the verifier's verdict on a single round.
	Result struct {
		Round int
		OK    bool
	}

	// Error ends the session. Round is 0 when the error is not tied to a round.
	Error struct {
		Round   int
		Message string
	}

	// Done carries the prover's view of the aggregate outcome and ends the session.
	Done struct {
		OK bool
	}
)

func (*Hello) Type() string     { return TypeHello }
func (*Commit) Type() string    { return TypeCommit }
func (*Challenge) Type() string { return TypeChallenge }
func (*Response) Type() string  { return TypeResponse }
func (*Result) Type() string    { return TypeResult }
func (*Error) Type() string     { return TypeError }
func (*Done) Type() string      { return TypeDone }

func (*Hello) isMessage()     {}
func (*Commit) isMessage()    {}
func (*Challenge) isMessage() {}
func (*Response) isMessage()  {}
func (*Result) isMessage()    {}
func (*Error) isMessage()     {}
func (*Done) isMessage()      {}
