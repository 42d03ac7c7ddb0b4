package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleHook mirrors entries at or above a minimum level to a console
// writer while the main output goes to the log file.
type ConsoleHook struct {
	out    io.Writer
	levels []logrus.Level
}

func NewConsoleHook(min logrus.Level) *ConsoleHook {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= min {
			levels = append(levels, l)
		}
	}
	return &ConsoleHook{out: os.Stdout, levels: levels}
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

func (h *ConsoleHook) Levels() []logrus.Level {
	return h.levels
}
