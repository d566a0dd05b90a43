package telemetry

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetOutput redirects log output. Tests use it to capture lines.
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(out)
}

// SetLevel sets the minimum level from a name such as "debug" or "warn".
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	level, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.SetLevel(level)
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	write(logrus.DebugLevel, msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(logrus.InfoLevel, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(logrus.WarnLevel, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(logrus.ErrorLevel, msg, fields)
}

func write(level logrus.Level, msg string, fields map[string]any) {
	mu.RLock()
	defer mu.RUnlock()
	entry := logger.WithFields(logrus.Fields(normalize(fields)))
	entry.Log(level, msg)
}

// normalize turns error values into strings so the JSON formatter keeps the message.
func normalize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok && err != nil {
			out[k] = err.Error()
			continue
		}
		out[k] = v
	}
	return out
}
