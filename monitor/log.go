package monitor

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "monitor")
