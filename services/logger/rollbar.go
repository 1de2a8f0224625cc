package logsvc

import (
	"os"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/masomo-attendance/core"
)

// RollbarLogger reports to Rollbar and writes structured lines through logrus.
type RollbarLogger struct {
	log       *logrus.Logger
	component string
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewLogrus returns a logrus.Logger leveled & formatted according to conf.
func NewLogrus(conf *core.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(conf.LogLevel))
	if err != nil {
		log.Warnf("invalid log level %q, defaulting to info", conf.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if conf.Debug {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}
	return log
}

func NewRollbarLogger(log *logrus.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{log: log}
}

// WithComponent returns a copy of l tagging every line with the given component.
func (l RollbarLogger) WithComponent(name string) *RollbarLogger {
	l.component = name
	return &l
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Operator
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, *logrus.Entry) {
	var opSet bool
	entry := logrus.NewEntry(l.log)
	if l.component != "" {
		entry = entry.WithField("component", l.component)
	}
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Operator:
			if !opSet { // only set one Operator
				rollbar.SetPerson(a.ID, a.Username, a.Email)
				entry = entry.WithField("operator", a.Username)
				opSet = true
			}
			continue
		case error:
			entry = entry.WithError(a)
		case map[string]interface{}:
			entry = entry.WithFields(a)
		}
		rbArgs = append(rbArgs, arg)
	}
	if !opSet {
		rollbar.ClearPerson()
	}
	return rbArgs, entry
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	entry.Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	entry.Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	entry.Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	entry.Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	entry.Fatal(msg)
}
