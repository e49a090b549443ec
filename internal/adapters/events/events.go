// Package events contains EventPublisher implementations for processes that
// run outside a ledger.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/lifebank/internal/ports/secondary"
)

// LogPublisher writes each event as one structured log line.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that logs at info level.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, event secondary.Event) error {
	p.logger.Info().
		Str("event_id", event.EventID).
		Str("event", string(event.Name)).
		Uint64("request_id", event.RequestID).
		Interface("payload", event.Payload).
		Msg("event published")
	return nil
}

// Recorder keeps published events in memory. Setting Err makes every
// Publish fail without recording.
type Recorder struct {
	mu     sync.Mutex
	events []secondary.Event
	Err    error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event secondary.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []secondary.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]secondary.Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (secondary.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return secondary.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Fanout delivers each event to every publisher, continuing past failures.
type Fanout []secondary.EventPublisher

func (f Fanout) Publish(ctx context.Context, event secondary.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ secondary.EventPublisher = (*LogPublisher)(nil)
	_ secondary.EventPublisher = (*Recorder)(nil)
	_ secondary.EventPublisher = Fanout(nil)
)
