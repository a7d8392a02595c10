package ffs

import (
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs/big"
)

type (
	// Tracer observes the rounds of AuthenticateVerbose. It cannot influence the outcome.
	Tracer interface {
		Round(trace *RoundTrace)
	}

	// RoundTrace holds every value of a completed round.
	RoundTrace struct {
		Round       int
		X           *big.Int
		E           []uint
		Y           *big.Int
		Z           *big.Int
		ZEqualsX    bool
		ZEqualsNegX bool
		OK          bool
	}

	EmptyTracer struct{}

	// LogTracer writes one log entry per round. A nil Logger means the package Logger, and the
	// zero Level (logrus.PanicLevel) is replaced by logrus.InfoLevel.
	LogTracer struct {
		Logger *logrus.Logger
		Level  logrus.Level
	}
)

func (*EmptyTracer) Round(_ *RoundTrace) {}

func (l *LogTracer) Round(trace *RoundTrace) {
	logger := l.Logger
	if logger == nil {
		logger = Logger
	}
	level := l.Level
	if level == logrus.PanicLevel {
		level = logrus.InfoLevel
	}
	logger.WithFields(logrus.Fields{
		"round":        trace.Round,
		"x":            trace.X.String(),
		"e":            trace.E,
		"y":            trace.Y.String(),
		"z":            trace.Z.String(),
		"z_equals_x":   trace.ZEqualsX,
		"z_equals_neg": trace.ZEqualsNegX,
		"ok":           trace.OK,
	}).Log(level, "round")
}
