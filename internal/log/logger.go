// Package log provides the structured logger handle used by a conversion run.
//
// A Logger is created once per run and passed explicitly to the components
// that need it. There is no package-level logger: two runs in the same
// process never share verbosity or outputs.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"convertzh/internal/errors"
)

// Level is a logging severity.
type Level = logrus.Level

// Re-exported levels so callers don't import logrus directly.
const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger wraps a logrus entry. The zero value is not usable; use NewLogger.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

type settings struct {
	out   io.Writer
	json  bool
	level Level
	file  string
}

// Option configures a Logger.
type Option func(*settings)

// WithOutput sets the console writer (stderr by default).
func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// WithJSON switches the console output to JSON lines.
func WithJSON() Option {
	return func(s *settings) { s.json = true }
}

// WithLevel sets the console level.
func WithLevel(level Level) Option {
	return func(s *settings) { s.level = level }
}

// WithVerbosity maps a -v count to a console level: 0 warn, 1 info, 2+ debug.
func WithVerbosity(v int) Option {
	return func(s *settings) { s.level = VerbosityLevel(v) }
}

// WithFile additionally writes every entry, debug included, to path.
func WithFile(path string) Option {
	return func(s *settings) { s.file = path }
}

// VerbosityLevel converts a verbosity count to a Level.
func VerbosityLevel(v int) Level {
	switch {
	case v >= 2:
		return DebugLevel
	case v == 1:
		return InfoLevel
	default:
		return WarnLevel
	}
}

// NewLogger builds a Logger. It only fails when a log file was requested and
// cannot be opened.
func NewLogger(opts ...Option) (*Logger, error) {
	s := settings{out: os.Stderr, level: WarnLevel}
	for _, opt := range opts {
		opt(&s)
	}

	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetReportCaller(false)

	var consoleFormatter logrus.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	}
	if s.json {
		consoleFormatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyTime: "timestamp",
			},
		}
	}
	base.AddHook(&writerHook{out: s.out, formatter: consoleFormatter, max: s.level})
	maxLevel := s.level

	l := &Logger{}
	if s.file != "" {
		f, err := os.OpenFile(s.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.NewFileError("cannot open log file", s.file, errors.FileOperationFailed, err)
		}
		l.file = f
		base.AddHook(&writerHook{
			out:       f,
			formatter: &logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
			max:       DebugLevel,
		})
		maxLevel = DebugLevel
	}
	base.SetLevel(maxLevel)
	l.entry = logrus.NewEntry(base)
	return l, nil
}

// Discard returns a Logger that drops everything. Useful in tests and for
// components constructed without a logger.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.PanicLevel)
	return &Logger{entry: logrus.NewEntry(base)}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(lf), file: l.file}
}

// WithError attaches err and, for application errors, its kind and subject.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l.With(F("error", "<nil>"))
	}
	fields := []Field{F("error", err.Error())}
	if kind := errors.KindOf(err); kind != errors.Unknown {
		fields = append(fields, F("error_kind", kind.String()))
	}
	var fileErr *errors.FileError
	if errors.As(err, &fileErr) && fileErr.Path() != "" {
		fields = append(fields, F("path", fileErr.Path()))
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields = append(fields, F("param", configErr.Param()))
	}
	return l.With(fields...)
}

// Debug logs at debug level.
func (l *Logger) Debug(args ...interface{}) { l.entry.Debug(args...) }

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

// Info logs at info level.
func (l *Logger) Info(args ...interface{}) { l.entry.Info(args...) }

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(args ...interface{}) { l.entry.Warn(args...) }

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

// Error logs at error level.
func (l *Logger) Error(args ...interface{}) { l.entry.Error(args...) }

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// writerHook sends entries at or above max severity to out.
type writerHook struct {
	out       io.Writer
	formatter logrus.Formatter
	max       Level
}

func (h *writerHook) Levels() []logrus.Level {
	var levels []logrus.Level
	for _, lvl := range logrus.AllLevels {
		if lvl <= h.max {
			levels = append(levels, lvl)
		}
	}
	return levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("format log entry: %w", err)
	}
	_, err = h.out.Write(line)
	return err
}
