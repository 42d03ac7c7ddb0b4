package eventsink

import "fmt"

type Locator struct {
	sinks map[string]Sink
}

// LocatorOption is a function that configures a Locator
type LocatorOption func(*Locator)

// WithSink registers a base sink under its name
func WithSink(sink Sink) LocatorOption {
	return func(l *Locator) {
		l.sinks[sink.Name()] = sink
	}
}

func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		sinks: map[string]Sink{NopSinkName: NewNopSink()},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locator) GetSink(name string, settings map[string]interface{}) (Sink, error) {
	base, ok := l.sinks[name]
	if !ok {
		return nil, fmt.Errorf("unknown event sink: %s", name)
	}
	if err := base.ValidateConfig(settings); err != nil {
		return nil, err
	}
	return base.WithSettings(settings)
}
