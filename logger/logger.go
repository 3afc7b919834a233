package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  *logrus.Logger
	WarnLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

func init() {
	// Usable before InitLoggers runs (tests, package init order).
	InfoLogger = newLogger(os.Stdout, logrus.InfoLevel)
	WarnLogger = newLogger(os.Stdout, logrus.WarnLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)
}

// InitLoggers wires the three loggers to stdout/stderr and a rotating log file.
// LOG_FILE overrides the default file location; LOG_FILE=off disables the file.
func InitLoggers() {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "logs/academy.log"
	}

	var file io.Writer
	if logFile != "off" {
		file = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	InfoLogger = newLogger(withFile(os.Stdout, file), logrus.InfoLevel)
	WarnLogger = newLogger(withFile(os.Stdout, file), logrus.WarnLevel)
	ErrorLogger = newLogger(withFile(os.Stderr, file), logrus.ErrorLevel)

	if os.Getenv("LOG_LEVEL") == "debug" {
		InfoLogger.SetLevel(logrus.DebugLevel)
	}
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return l
}

func withFile(console io.Writer, file io.Writer) io.Writer {
	if file == nil {
		return console
	}
	return io.MultiWriter(console, file)
}
