package alert

import (
	"context"
	"errors"

	"go.uber.org/multierr"
)

var (
	ErrRejected  = errors.New("alert rejected by endpoint")
	ErrTransport = errors.New("alert transport failure")
)

// Notification is one outbound alert. Event is nil for plain announcements.
type Notification struct {
	Text  string
	Event *Event
}

// Sink delivers a notification at most once. Implementations do not retry.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// MultiSink delivers to every sink in order, even after a failure, and
// returns the combined errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Send(ctx, n))
	}
	return err
}
