package eventsink

import (
	"context"
	"time"
)

const (
	EventAlertFired     = "alert.fired"
	EventFindingCreated = "finding.created"
	EventActionExecuted = "action.executed"
)

// Event is one record exported to downstream consumers.
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

//go:generate mockery --name=Sink --dir=. --output=./mocks --filename=sink_mock.go --case=underscore --with-expecter
type Sink interface {
	Name() string
	ValidateConfig(settings map[string]interface{}) error
	// WithSettings returns a configured copy ready to publish.
	WithSettings(settings map[string]interface{}) (Sink, error)
	Publish(ctx context.Context, evt Event) error
	Close()
}

type nopSink struct{}

const NopSinkName = "none"

func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Name() string { return NopSinkName }

func (nopSink) ValidateConfig(map[string]interface{}) error { return nil }

func (s nopSink) WithSettings(map[string]interface{}) (Sink, error) { return s, nil }

func (nopSink) Publish(context.Context, Event) error { return nil }

func (nopSink) Close() {}
