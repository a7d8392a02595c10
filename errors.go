package ffs

import "github.com/privacybydesign/ffs/internal/common"

// Error kinds returned by this module. Match them with errors.Is from github.com/go-errors/errors.
var (
	ErrInvalidParameter    = common.ErrInvalidParameter
	ErrArithmetic          = common.ErrArithmetic
	ErrGenerationExhausted = common.ErrGenerationExhausted
	ErrProtocol            = common.ErrProtocol
	ErrTransport           = common.ErrTransport
)
