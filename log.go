package ffs

import (
	"github.com/privacybydesign/ffs/blumprime"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.StandardLogger()
	blumprime.Logger = Logger
}
