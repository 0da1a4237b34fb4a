package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	// WithField returns a child logger that adds key to every entry.
	WithField(key string, value interface{}) Logger
	WithError(err error) Logger
}

type Field struct {
	Key   string
	Value interface{}
}

// Err is shorthand for the "error" field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

type logrusLogger struct {
	entry *logrus.Entry
}

func New(level string, format string) Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput builds a logger writing to out. Unknown levels fall back to
// info, unknown formats to text.
func NewWithOutput(level string, format string, out io.Writer) Logger {
	log := logrus.New()
	log.SetOutput(out)

	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}
	log.SetLevel(parsedLevel)

	if format == FormatJSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true})
	}

	return &logrusLogger{entry: logrus.NewEntry(log)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() Logger {
	return NewWithOutput("panic", FormatText, io.Discard)
}

func (l *logrusLogger) Debug(msg string, fields ...Field) {
	l.with(fields).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Field) {
	l.with(fields).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Field) {
	l.with(fields).Warning(msg)
}

func (l *logrusLogger) Error(msg string, fields ...Field) {
	l.with(fields).Error(msg)
}

func (l *logrusLogger) Fatal(msg string, fields ...Field) {
	l.with(fields).Fatal(msg)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

func (l *logrusLogger) with(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.entry.WithFields(data)
}

// Process-wide logger for code that runs before configuration is loaded.
var defaultLogger Logger = New("info", FormatJSON)

func SetDefault(l Logger) {
	defaultLogger = l
}

func Info(msg string, fields ...Field) {
	defaultLogger.Info(msg, fields...)
}

func Error(msg string, fields ...Field) {
	defaultLogger.Error(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	defaultLogger.Fatal(msg, fields...)
}
