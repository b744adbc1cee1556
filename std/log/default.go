package log

import "os"

var defaultLogger *Logger = NewText(os.Stderr)

// Default returns the default logger.
func Default() *Logger {
	return defaultLogger
}

// SetDefault replaces the default logger, e.g. with a JSON logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

func Trace(t any, msg string, v ...any) {
	defaultLogger.log(t, msg, LevelTrace, v...)
}

func Debug(t any, msg string, v ...any) {
	defaultLogger.log(t, msg, LevelDebug, v...)
}

func Info(t any, msg string, v ...any) {
	defaultLogger.log(t, msg, LevelInfo, v...)
}

func Warn(t any, msg string, v ...any) {
	defaultLogger.log(t, msg, LevelWarn, v...)
}

func Error(t any, msg string, v ...any) {
	defaultLogger.log(t, msg, LevelError, v...)
}

// Fatal level message, followed by an exit.
func Fatal(t any, msg string, v ...any) {
	defaultLogger.log(t, msg, LevelFatal, v...)
	defaultLogger.exit(1)
}

// HasTrace returns if trace level is enabled.
func HasTrace() bool {
	return defaultLogger.Level() <= LevelTrace
}
