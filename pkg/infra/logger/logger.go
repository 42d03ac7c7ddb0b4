package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

const logsDir = "logs"

var serverTypePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NewLogger writes JSON logs to logs/<serverType>.log through an async
// buffered writer and mirrors them to stdout. LOG_TO_FILE=false keeps stdout only.
func NewLogger(serverType string) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(levelFromEnv(os.Getenv("LOG_LEVEL")))

	if os.Getenv("LOG_TO_FILE") == "false" {
		logger.SetOutput(os.Stdout)
		return logger
	}

	if !serverTypePattern.MatchString(serverType) {
		log.Fatalf("Invalid server type for log file: %q", serverType)
	}
	if err := os.MkdirAll(logsDir, 0750); err != nil {
		log.Fatalf("Failed to create logs directory: %v", err)
	}

	logFile := filepath.Join(logsDir, fmt.Sprintf("%s.log", serverType))
	asyncWriter, err := NewAsyncFileWriter(logFile, 32*1024)
	if err != nil {
		log.Fatalf("Failed to initialize async log writer: %v", err)
	}

	logger.SetOutput(asyncWriter)
	logger.AddHook(NewConsoleHook(levelFromEnv(os.Getenv("LOG_CONSOLE_LEVEL"))))

	return logger
}

func levelFromEnv(value string) logrus.Level {
	switch value {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
