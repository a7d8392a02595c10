package blumprime

import "github.com/sirupsen/logrus"

var Logger = logrus.StandardLogger()
