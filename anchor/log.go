package anchor

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "anchor")
