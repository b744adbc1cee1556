package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
)

// Logger is a leveled logger on top of slog. Every message carries an
// optional tag identifying the component that emitted it.
type Logger struct {
	slog  *slog.Logger
	level atomic.Int64
	exit  func(int)
}

// Tag identifies the emitter of a message.
type Tag interface {
	String() string
}

func NewText(w io.Writer) *Logger {
	return newLogger(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       slog.Level(LevelTrace),
		ReplaceAttr: replaceAttr,
	}))
}

func NewJson(w io.Writer) *Logger {
	return newLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.Level(LevelTrace),
		ReplaceAttr: replaceAttr,
	}))
}

func newLogger(h slog.Handler) *Logger {
	l := &Logger{slog: slog.New(h), exit: os.Exit}
	l.level.Store(int64(LevelInfo))
	return l
}

// SetLevel sets the logging level and returns the previous level.
func (l *Logger) SetLevel(level Level) (prev Level) {
	return Level(l.level.Swap(int64(level)))
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// SetExit replaces the function called after a fatal message.
func (l *Logger) SetExit(exit func(int)) {
	l.exit = exit
}

func (l *Logger) log(t any, msg string, level Level, v ...any) {
	cur := l.Level()
	if cur > level {
		return
	}

	// Get source information if debug logs
	if cur <= LevelDebug {
		if pc, _, _, ok := runtime.Caller(2); ok {
			if f := runtime.FuncForPC(pc); f != nil {
				v = append(v, slog.SourceKey, f.Name())
			}
		}
	}

	if t != nil {
		if tag, ok := t.(Tag); ok {
			v = append([]any{"tag", tag.String()}, v...)
		} else {
			v = append([]any{"tag", t}, v...)
		}
	}

	l.slog.Log(context.Background(), slog.Level(level), msg, v...)
}

func (l *Logger) Trace(t any, msg string, v ...any) {
	l.log(t, msg, LevelTrace, v...)
}

func (l *Logger) Debug(t any, msg string, v ...any) {
	l.log(t, msg, LevelDebug, v...)
}

func (l *Logger) Info(t any, msg string, v ...any) {
	l.log(t, msg, LevelInfo, v...)
}

func (l *Logger) Warn(t any, msg string, v ...any) {
	l.log(t, msg, LevelWarn, v...)
}

func (l *Logger) Error(t any, msg string, v ...any) {
	l.log(t, msg, LevelError, v...)
}

// Fatal level message, followed by an exit.
func (l *Logger) Fatal(t any, msg string, v ...any) {
	l.log(t, msg, LevelFatal, v...)
	l.exit(1)
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		a.Value = slog.StringValue(Level(level).String())
	}
	return a
}
