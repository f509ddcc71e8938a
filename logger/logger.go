// Package logger provides the leveled Logger used across shardstat.
package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const RFC3339UsecTz0 = "2006-01-02T15:04:05.000000Z07:00"

// Ensure implementations satisfy the interface.
var (
	_ Logger = &nopLogger{}
	_ Logger = &standardLogger{}
	_ Logger = &LogfLogger{}
	_ Logger = &BufferLogger{}
)

// Logger represents an interface for a shared logger.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a new Logger with the same configuration as
	// this one, but all logs will have the given prefix.
	WithPrefix(prefix string) Logger
}

// NopLogger represents a Logger that doesn't do anything.
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Printf(format string, v ...interface{}) {}
func (n *nopLogger) Debugf(format string, v ...interface{}) {}
func (n *nopLogger) Infof(format string, v ...interface{})  {}
func (n *nopLogger) Warnf(format string, v ...interface{})  {}
func (n *nopLogger) Errorf(format string, v ...interface{}) {}

func (n *nopLogger) WithPrefix(prefix string) Logger {
	return n
}

// standardLogger writes console-encoded lines through zap.
type standardLogger struct {
	sugar  *zap.SugaredLogger
	prefix string
}

func newStandardLogger(w io.Writer, level zapcore.Level) *standardLogger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.UTC().Format(RFC3339UsecTz0))
	}
	enc.EncodeCaller = nil
	enc.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return &standardLogger{sugar: zap.New(core).Sugar()}
}

// NewStandardLogger returns a Logger writing INFO and above to w.
func NewStandardLogger(w io.Writer) Logger {
	return newStandardLogger(w, zapcore.InfoLevel)
}

// NewVerboseLogger returns a Logger writing DEBUG and above to w.
func NewVerboseLogger(w io.Writer) Logger {
	return newStandardLogger(w, zapcore.DebugLevel)
}

func (s *standardLogger) Printf(format string, v ...interface{}) {
	s.sugar.Infof(s.prefix+format, v...)
}

func (s *standardLogger) Debugf(format string, v ...interface{}) {
	s.sugar.Debugf(s.prefix+format, v...)
}

func (s *standardLogger) Infof(format string, v ...interface{}) {
	s.sugar.Infof(s.prefix+format, v...)
}

func (s *standardLogger) Warnf(format string, v ...interface{}) {
	s.sugar.Warnf(s.prefix+format, v...)
}

func (s *standardLogger) Errorf(format string, v ...interface{}) {
	s.sugar.Errorf(s.prefix+format, v...)
}

func (s *standardLogger) WithPrefix(prefix string) Logger {
	return &standardLogger{sugar: s.sugar, prefix: s.prefix + prefix}
}

// Logfer is a thing that has only a Logf() method, like for instance,
// testing.T or testing.B.
type Logfer interface {
	Logf(format string, v ...interface{})
}

// LogfLogger is a test logger that wraps something that has a Logf interface
// and makes it act like our logger.
type LogfLogger struct {
	wrapped Logfer
	prefix  string
}

func NewLogfLogger(l Logfer) *LogfLogger {
	return &LogfLogger{wrapped: l}
}

func (ll *LogfLogger) Printf(format string, v ...interface{}) { ll.logf(format, v...) }
func (ll *LogfLogger) Debugf(format string, v ...interface{}) { ll.logf(format, v...) }
func (ll *LogfLogger) Infof(format string, v ...interface{})  { ll.logf(format, v...) }
func (ll *LogfLogger) Warnf(format string, v ...interface{})  { ll.logf(format, v...) }
func (ll *LogfLogger) Errorf(format string, v ...interface{}) { ll.logf(format, v...) }

func (ll *LogfLogger) logf(format string, v ...interface{}) {
	ll.wrapped.Logf(ll.prefix+format, v...)
}

func (ll *LogfLogger) WithPrefix(prefix string) Logger {
	return &LogfLogger{wrapped: ll.wrapped, prefix: ll.prefix + prefix}
}

// BufferLogger holds formatted messages in memory so tests can assert on
// what was logged.
type BufferLogger struct {
	store  *bufferStore
	prefix string
}

type bufferStore struct {
	mu    sync.Mutex
	lines []string
}

func NewBufferLogger() *BufferLogger {
	return &BufferLogger{store: &bufferStore{}}
}

func (b *BufferLogger) Printf(format string, v ...interface{}) { b.add("INFO", format, v...) }
func (b *BufferLogger) Debugf(format string, v ...interface{}) { b.add("DEBUG", format, v...) }
func (b *BufferLogger) Infof(format string, v ...interface{})  { b.add("INFO", format, v...) }
func (b *BufferLogger) Warnf(format string, v ...interface{})  { b.add("WARN", format, v...) }
func (b *BufferLogger) Errorf(format string, v ...interface{}) { b.add("ERROR", format, v...) }

func (b *BufferLogger) add(level, format string, v ...interface{}) {
	line := level + " " + b.prefix + fmt.Sprintf(format, v...)
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.lines = append(b.store.lines, line)
}

func (b *BufferLogger) WithPrefix(prefix string) Logger {
	return &BufferLogger{store: b.store, prefix: b.prefix + prefix}
}

// Lines returns a copy of everything logged so far.
func (b *BufferLogger) Lines() []string {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	out := make([]string, len(b.store.lines))
	copy(out, b.store.lines)
	return out
}
