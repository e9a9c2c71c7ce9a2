package core

// Logger is the structured logger used across the app.
// args are alternating keys and values; an error or a user may also be passed on its own.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user on whose behalf something is logged.
// Loggers attach it to reports instead of printing it.
type Person struct {
	ID       string
	Username string
	Email    string
}
