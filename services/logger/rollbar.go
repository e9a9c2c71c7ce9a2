package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/masomo-records/core"
)

// RollbarLogger writes structured logs through zap and reports them to Rollbar when enabled.
type RollbarLogger struct {
	sugar   *zap.SugaredLogger
	enabled bool
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a logger named name (e.g. "API", "DB").
// Rollbar reporting is only enabled outside debug mode and when a token is configured.
func NewRollbarLogger(name string, conf *core.Config) (*RollbarLogger, error) {
	var zconf zap.Config
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
	} else {
		zconf = zap.NewProductionConfig()
	}
	zl, err := zconf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	l := newLogger(zl.Named(name))
	l.Enable(!conf.Debug && conf.RollbarToken != "")
	return l, nil
}

// NewTestLogger returns a logger recording every entry, for assertions in tests.
func NewTestLogger() (*RollbarLogger, *observer.ObservedLogs) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	return newLogger(zap.New(zcore)), logs
}

func newLogger(zl *zap.Logger) *RollbarLogger {
	return &RollbarLogger{sugar: zl.Sugar()}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.enabled = enabled
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) Sync() {
	_ = l.sugar.Sync()
	if l.enabled {
		rollbar.Wait()
	}
}

// split separates the key/value pairs from the logged Person, if any.
func (l *RollbarLogger) split(args []interface{}) ([]interface{}, *core.Person) {
	var person *core.Person
	kvs := make([]interface{}, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if person == nil { // only set one Person
				p := a
				person = &p
			}
		case *core.Person:
			if person == nil && a != nil {
				person = a
			}
		default:
			kvs = append(kvs, arg)
		}
	}
	if len(kvs)%2 != 0 {
		kvs = append([]interface{}{"args"}, kvs...)
	}
	return kvs, person
}

// report sends the entry to Rollbar: the first error value is the reported error and
// the remaining pairs become extras.
func (l *RollbarLogger) report(level, msg string, kvs []interface{}, person *core.Person) {
	if !l.enabled {
		return
	}
	if person != nil {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}

	var reportErr error
	extras := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if err, ok := kvs[i+1].(error); ok && reportErr == nil {
			reportErr = err
			continue
		}
		extras[fmt.Sprint(kvs[i])] = kvs[i+1]
	}

	args := []interface{}{msg, extras}
	if reportErr != nil {
		args = append(args, reportErr)
	}
	rollbar.Log(level, args...)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	kvs, person := l.split(args)
	l.report(rollbar.DEBUG, msg, kvs, person)
	l.sugar.Debugw(msg, kvs...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	kvs, person := l.split(args)
	l.report(rollbar.INFO, msg, kvs, person)
	l.sugar.Infow(msg, kvs...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	kvs, person := l.split(args)
	l.report(rollbar.WARN, msg, kvs, person)
	l.sugar.Warnw(msg, kvs...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	kvs, person := l.split(args)
	l.report(rollbar.ERR, msg, kvs, person)
	l.sugar.Errorw(msg, kvs...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	kvs, person := l.split(args)
	l.report(rollbar.CRIT, msg, kvs, person)
	if l.enabled {
		rollbar.Wait()
	}
	l.sugar.Fatalw(msg, kvs...)
}
