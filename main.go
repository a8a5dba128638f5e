package zring

import (
	"github.com/sirupsen/logrus"

	"github.com/zring-io/zring/config"
	"github.com/zring-io/zring/util"
)

// Main builds an adapter from the given config. When configTest is true the
// config is validated, including a full attach, but nothing is returned for
// use and no stat sinks are started.
func Main(c *config.C, configTest bool, buildVersion string, logger *logrus.Logger) (*Adapter, error) {
	l := logger
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}

	err := configLogger(l, c)
	if err != nil {
		return nil, util.NewContextualError("Failed to configure the logger", nil, err)
	}

	c.RegisterReloadCallback(func(c *config.C) {
		err := configLogger(l, c)
		if err != nil {
			l.WithError(err).Error("Failed to configure the logger")
		}
	})

	err = startStats(l, c, buildVersion, configTest)
	if err != nil {
		return nil, util.ContextualizeIfNeeded("Failed to start stats emission", err)
	}

	a, err := Attach(l, c)
	if err != nil {
		return nil, util.ContextualizeIfNeeded("Failed to attach adapter", err)
	}

	if configTest {
		a.Close()
		return nil, nil
	}

	return a, nil
}
