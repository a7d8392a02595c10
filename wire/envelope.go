package wire

import (
	"fmt"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/internal/common"
)

// envelope is the flat record every message is encoded as. Integers modulo n travel as
// decimal strings; absent fields are omitted.
type envelope struct {
	Type    string `json:"type" cbor:"type"`
	Role    string `json:"role,omitempty" cbor:"role,omitempty"`
	Name    string `json:"name,omitempty" cbor:"name,omitempty"`
	K       int    `json:"k,omitempty" cbor:"k,omitempty"`
	T       int    `json:"t,omitempty" cbor:"t,omitempty"`
	Session string `json:"session,omitempty" cbor:"session,omitempty"`
	Round   int    `json:"round,omitempty" cbor:"round,omitempty"`
	X       string `json:"x,omitempty" cbor:"x,omitempty"`
	E       []int  `json:"e,omitempty" cbor:"e,omitempty"`
	Y       string `json:"y,omitempty" cbor:"y,omitempty"`
	OK      *bool  `json:"ok,omitempty" cbor:"ok,omitempty"`
	Message string `json:"message,omitempty" cbor:"message,omitempty"`
}

func toEnvelope(msg Message) (*envelope, error) {
	switch m := msg.(type) {
	case *Hello:
		return &envelope{Type: TypeHello, Role: m.Role, Name: m.Name, K: m.K, T: m.T, Session: m.Session}, nil
	case *Commit:
		if m.X == nil {
			return nil, errors.WrapPrefix(common.ErrProtocol, "commit without x", 0)
		}
		return &envelope{Type: TypeCommit, Round: m.Round, X: m.X.String()}, nil
	case *Challenge:
		e := make([]int, len(m.E))
		for i, ei := range m.E {
			e[i] = int(ei)
		}
		return &envelope{Type: TypeChallenge, Round: m.Round, E: e}, nil
	case *Response:
		if m.Y == nil {
			return nil, errors.WrapPrefix(common.ErrProtocol, "response without y", 0)
		}
		return &envelope{Type: TypeResponse, Round: m.Round, Y: m.Y.String()}, nil
	case *Result:
		return &envelope{Type: TypeResult, Round: m.Round, OK: &m.OK}, nil
	case *Error:
		return &envelope{Type: TypeError, Round: m.Round, Message: m.Message}, nil
	case *Done:
		return &envelope{Type: TypeDone, OK: &m.OK}, nil
	default:
		return nil, errors.Errorf("unsupported message %T", msg)
	}
}

// message validates the mandatory fields of the envelope's variant and converts it.
func (env *envelope) message() (Message, error) {
	switch env.Type {
	case TypeHello:
		if env.Role != RoleProver && env.Role != RoleVerifier {
			return nil, malformed(env, "unknown role %q", env.Role)
		}
		if env.K < 1 || env.T < 1 {
			return nil, malformed(env, "k and t must be at least 1")
		}
		return &Hello{Role: env.Role, Name: env.Name, K: env.K, T: env.T, Session: env.Session}, nil

	case TypeCommit:
		if err := env.checkRound(); err != nil {
			return nil, err
		}
		x, err := parseDecimal(env, "x", env.X)
		if err != nil {
			return nil, err
		}
		return &Commit{Round: env.Round, X: x}, nil

	case TypeChallenge:
		if err := env.checkRound(); err != nil {
			return nil, err
		}
		if len(env.E) == 0 {
			return nil, malformed(env, "missing e")
		}
		e := make([]uint, len(env.E))
		for i, ei := range env.E {
			if ei != 0 && ei != 1 {
				return nil, malformed(env, "e[%d] = %d is not a bit", i, ei)
			}
			e[i] = uint(ei)
		}
		return &Challenge{Round: env.Round, E: e}, nil

	case TypeResponse:
		if err := env.checkRound(); err != nil {
			return nil, err
		}
		y, err := parseDecimal(env, "y", env.Y)
		if err != nil {
			return nil, err
		}
		return &Response{Round: env.Round, Y: y}, nil

	case TypeResult:
		if err := env.checkRound(); err != nil {
			return nil, err
		}
		if env.OK == nil {
			return nil, malformed(env, "missing ok")
		}
		return &Result{Round: env.Round, OK: *env.OK}, nil

	case TypeError:
		if env.Round < 0 {
			return nil, malformed(env, "negative round")
		}
		if env.Message == "" {
			return nil, malformed(env, "missing message")
		}
		return &Error{Round: env.Round, Message: env.Message}, nil

	case TypeDone:
		if env.OK == nil {
			return nil, malformed(env, "missing ok")
		}
		return &Done{OK: *env.OK}, nil

	case "":
		return nil, errors.WrapPrefix(common.ErrProtocol, "message without type", 0)
	default:
		return nil, errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("unknown message type %q", env.Type), 0)
	}
}

func (env *envelope) checkRound() error {
	if env.Round < 1 {
		return malformed(env, "round must be at least 1")
	}
	return nil
}

func parseDecimal(env *envelope, field, s string) (*big.Int, error) {
	if s == "" {
		return nil, malformed(env, "missing %s", field)
	}
	x := new(big.Int)
	if err := x.UnmarshalText([]byte(s)); err != nil {
		return nil, malformed(env, "%s is not a canonical decimal integer", field)
	}
	return x, nil
}

func malformed(env *envelope, format string, args ...interface{}) error {
	return errors.WrapPrefix(common.ErrProtocol, "malformed "+env.Type+": "+fmt.Sprintf(format, args...), 0)
}
