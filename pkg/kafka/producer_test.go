package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishBatchEncodesValues(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "forecasts", "gzip")
	err := p.PublishBatch(context.Background(), "", []Message{
		{Key: []byte("AAPL"), Value: map[string]int{"rank": 1}, Headers: map[string]string{"cycle_id": "c1"}},
		{Key: []byte("MSFT"), Value: "raw"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}
	first := w.msgs[0]
	if first.Topic != "forecasts" || string(first.Key) != "AAPL" || string(first.Value) != `{"rank":1}` {
		t.Fatalf("unexpected message %+v", first)
	}
	if len(first.Headers) != 1 || first.Headers[0].Key != "cycle_id" || string(first.Headers[0].Value) != "c1" {
		t.Fatalf("unexpected headers %+v", first.Headers)
	}
	if string(w.msgs[1].Value) != "raw" {
		t.Fatalf("string value re-encoded: %q", w.msgs[1].Value)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "forecasts", "gzip")
	if err := p.Publish(context.Background(), "other", []byte("k"), "v"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
	if err := p.PublishBatch(context.Background(), "", nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(WithTopic("x")); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
