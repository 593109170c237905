package observability

import "github.com/sirupsen/logrus"

// logrusLogger adapts a logrus entry to the Logger interface so hosts
// get structured output without writing their own adapter.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus wraps a logrus logger. A nil argument uses the standard
// logrus instance.
func NewLogrus(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) with(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key()] = f.Value()
	}
	return l.entry.WithFields(data)
}

func (l *logrusLogger) Debug(msg string, fields ...Field) { l.with(fields).Debug(msg) }
func (l *logrusLogger) Info(msg string, fields ...Field)  { l.with(fields).Info(msg) }
func (l *logrusLogger) Warn(msg string, fields ...Field)  { l.with(fields).Warn(msg) }
func (l *logrusLogger) Error(msg string, fields ...Field) { l.with(fields).Error(msg) }

func (l *logrusLogger) With(fields ...Field) Logger {
	return &logrusLogger{entry: l.with(fields)}
}
