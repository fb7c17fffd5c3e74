package logsvc

import (
	"io"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/masomo-admin/core"
)

type RollbarLogger struct {
	std *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewStdLogger returns the local sink every RollbarLogger also writes to:
// colored text in debug mode, JSON lines otherwise.
func NewStdLogger(out io.Writer, conf *core.Config) *logrus.Logger {
	std := logrus.New()
	std.SetOutput(out)
	if conf.Debug {
		std.SetLevel(logrus.DebugLevel)
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		std.SetLevel(logrus.InfoLevel)
		std.SetFormatter(&logrus.JSONFormatter{})
	}
	return std
}

func NewRollbarLogger(std *logrus.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Person
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set the staff member on whose behalf we log
		if p, ok := arg.(core.Person); ok {
			if !personSet { // only set one Person
				rollbar.SetPerson(p.ID, p.Username, p.Email)
				personSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) entry(args []interface{}) *logrus.Entry {
	entry := logrus.NewEntry(l.std)
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			entry = entry.WithError(a)
		case map[string]interface{}:
			entry = entry.WithFields(a)
		case core.Person:
			entry = entry.WithFields(logrus.Fields{"person_id": a.ID, "institute_id": a.InstituteID})
		default:
			entry = entry.WithField("extra", a)
		}
	}
	return entry
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.entry(args).Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.entry(args).Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.entry(args).Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.entry(args).Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.entry(args).Fatal(msg)
}
