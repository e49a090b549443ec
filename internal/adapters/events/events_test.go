package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/lifebank/internal/ports/secondary"
)

func sampleEvent() secondary.Event {
	return secondary.Event{
		EventID:   "evt-1",
		Name:      secondary.EventRequestStatusChanged,
		RequestID: 7,
		Payload:   secondary.StatusChangedPayload{OldStatus: "Pending", NewStatus: "Approved", ChangedAt: 100},
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["event"] != "RequestStatusChanged" || line["request_id"] != float64(7) || line["component"] != "events" {
		t.Errorf("log line = %v", line)
	}
	payload, ok := line["payload"].(map[string]any)
	if !ok || payload["new_status"] != "Approved" {
		t.Errorf("payload = %v", line["payload"])
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	if _, ok := r.Last(); ok {
		t.Error("Last() on empty recorder reported an event")
	}

	_ = r.Publish(context.Background(), sampleEvent())
	if got, ok := r.Last(); !ok || got.EventID != "evt-1" {
		t.Errorf("Last() = %+v, %v", got, ok)
	}

	r.Err = errors.New("broker down")
	if err := r.Publish(context.Background(), sampleEvent()); !errors.Is(err, r.Err) {
		t.Errorf("Publish() with Err set = %v", err)
	}
	if n := len(r.Events()); n != 1 {
		t.Errorf("recorded %d events, want 1", n)
	}
}

func TestFanout_ContinuesPastFailure(t *testing.T) {
	failing := NewRecorder()
	failing.Err = errors.New("down")
	ok := NewRecorder()

	err := Fanout{failing, ok}.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, failing.Err) {
		t.Errorf("Fanout.Publish() error = %v, want %v", err, failing.Err)
	}
	if len(ok.Events()) != 1 {
		t.Error("second publisher did not receive the event")
	}
}
