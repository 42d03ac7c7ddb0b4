package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Notification is one operator page.
type Notification struct {
	Title      string    `json:"title"`
	Severity   string    `json:"severity"`
	SourceKind string    `json:"source_kind"`
	SourceID   string    `json:"source_id"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sent_at"`
}

//go:generate mockery --name=Notifier --dir=. --output=./mocks --filename=notifier_mock.go --case=underscore --with-expecter
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type logNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (l *logNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.WithFields(logrus.Fields{
		"title":       n.Title,
		"severity":    n.Severity,
		"source_kind": n.SourceKind,
		"source_id":   n.SourceID,
	}).Warn(n.Message)
	return nil
}

type multiNotifier []Notifier

// NewMulti delivers to every notifier and joins their errors.
func NewMulti(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
