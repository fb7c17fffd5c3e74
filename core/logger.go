package core

// Logger is implemented by every logging backend of the app.
// args may carry errors, extra context maps and at most one Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the staff member on whose behalf something is logged.
type Person struct {
	ID          string
	Username    string
	Email       string
	InstituteID string
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
