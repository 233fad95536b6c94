package core

// Logger reports messages and errors.
// args may carry an error, a map[string]interface{} of extras and the acting rbac.Caller.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
