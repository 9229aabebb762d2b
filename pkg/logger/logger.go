package logger

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

type Logger struct {
	*logrus.Logger
}

// New builds a logger writing to out. Unknown levels fall back to info,
// unknown formats to text. Text output is colored only on a terminal.
func New(out io.Writer, level, format string) *Logger {
	log := logrus.New()
	log.SetOutput(out)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   isTerminal(out),
			DisableColors: !isTerminal(out),
		})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return &Logger{Logger: log}
}

// Discard returns a logger that drops everything, for tests and library use.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log}
}

// Operation starts a log entry tagged with the operation name and a fresh
// correlation id.
func (l *Logger) Operation(op string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"op":    op,
		"op_id": uuid.NewString(),
	})
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
