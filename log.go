package mqttcore

import "github.com/sirupsen/logrus"

// Logger is the diagnostic sink the Client (§4.3) reports non-fatal engine
// errors to. It is shaped after the subset of logrus.FieldLogger this
// package actually needs, mirroring how RoanBrand/gobroke threads a logger
// through its session and connection code. The default is a no-op, so a
// host that never configures one pays nothing for it.
type Logger interface {
	WithField(key string, value interface{}) Logger
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) WithField(string, interface{}) Logger    { return noopLogger{} }
func (noopLogger) Debugf(string, ...interface{})           {}
func (noopLogger) Warnf(string, ...interface{})            {}
func (noopLogger) Errorf(string, ...interface{})           {}

// logrusLogger adapts a logrus.FieldLogger (the *logrus.Logger or
// *logrus.Entry a host already has configured) to Logger.
type logrusLogger struct {
	l logrus.FieldLogger
}

// NewLogrusLogger wraps an existing logrus logger for use as a Client's
// Logger.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return logrusLogger{l: l}
}

func (a logrusLogger) WithField(key string, value interface{}) Logger {
	return logrusLogger{l: a.l.WithField(key, value)}
}

func (a logrusLogger) Debugf(format string, args ...interface{}) { a.l.Debugf(format, args...) }
func (a logrusLogger) Warnf(format string, args ...interface{})  { a.l.Warnf(format, args...) }
func (a logrusLogger) Errorf(format string, args ...interface{}) { a.l.Errorf(format, args...) }
