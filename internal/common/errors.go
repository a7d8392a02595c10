package common

import "github.com/go-errors/errors"

// Failure kinds shared by all packages. Callers match them with errors.Is from
// github.com/go-errors/errors; wrapped errors keep their stack trace.
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrArithmetic          = errors.New("arithmetic error")
	ErrGenerationExhausted = errors.New("generation attempts exhausted")
	ErrProtocol            = errors.New("protocol error")
	ErrTransport           = errors.New("transport error")
)
