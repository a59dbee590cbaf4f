package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// ============================================================================
// KafkaPublisher Tests
// ============================================================================

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	event := New(TypeBookingCreated, "booking:1", map[string]interface{}{"quantity": 2})
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "booking:1" {
		t.Errorf("expected key booking:1, got %s", msg.Key)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "event-type" || string(msg.Headers[0].Value) != TypeBookingCreated {
		t.Errorf("unexpected headers: %+v", msg.Headers)
	}

	var decoded struct {
		Type       string                 `json:"type"`
		Key        string                 `json:"key"`
		OccurredAt time.Time              `json:"occurred_at"`
		Payload    map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if decoded.Type != TypeBookingCreated || decoded.Payload["quantity"] != float64(2) {
		t.Errorf("unexpected body: %+v", decoded)
	}
	if decoded.OccurredAt.IsZero() {
		t.Error("expected occurred_at to be set")
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writeErr := errors.New("broker unavailable")
	p := NewKafkaPublisher(&fakeWriter{err: writeErr})

	err := p.Publish(context.Background(), New(TypeMenuSectionDeleted, "user:v", nil))
	if !errors.Is(err, writeErr) {
		t.Errorf("expected write error, got %v", err)
	}
}

func TestKafkaPublisher_EncodeError(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	err := p.Publish(context.Background(), New(TypeBookingCreated, "booking:1", make(chan int)))
	if err == nil {
		t.Fatal("expected encode error")
	}
	if len(w.messages) != 0 {
		t.Error("nothing should be written")
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	if err := NewKafkaPublisher(w).Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "fete.events")
	defer w.Close()

	if w.Topic != "fete.events" {
		t.Errorf("expected topic fete.events, got %s", w.Topic)
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Errorf("expected hash balancer, got %T", w.Balancer)
	}
}

func TestLogPublisher(t *testing.T) {
	var p Publisher = LogPublisher{}
	if err := p.Publish(context.Background(), New(TypeBookingStatusChanged, "booking:1", nil)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
