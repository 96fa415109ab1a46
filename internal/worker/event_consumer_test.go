package worker

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
)

// fakeReader serves queued messages, then blocks until the context is done
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

// fakeHandler rejects events of type XXX and fails its first failures calls
type fakeHandler struct {
	mu       sync.Mutex
	batches  [][]int64
	failures int
	rejected []notification.RejectedEvent
}

func (h *fakeHandler) HandleEvents(ctx context.Context, events []*incident.Event) (*notification.BatchResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]int64, 0, len(events))
	res := &notification.BatchResult{}
	var valid []*incident.Event
	for i, e := range events {
		ids = append(ids, e.ID)
		if e.Type == "XXX" {
			r := notification.RejectedEvent{Index: i, EventID: e.ID, Reason: "unknown event type"}
			res.Rejected = append(res.Rejected, r)
			h.rejected = append(h.rejected, r)
			continue
		}
		valid = append(valid, e)
	}
	h.batches = append(h.batches, ids)

	if h.failures > 0 {
		h.failures--
		res.Unqueued = valid
		return res, stderrors.New("database unavailable")
	}
	res.Accepted = len(valid)
	return res, nil
}

func (h *fakeHandler) rejections() []notification.RejectedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notification.RejectedEvent(nil), h.rejected...)
}

func (h *fakeHandler) snapshot() [][]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]int64(nil), h.batches...)
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(value)}
}

func runConsumer(t *testing.T, c *EventConsumer, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !until() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("timed out waiting for the consumer")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestEventConsumer_Batches(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(0, `{"id":1,"type":"STA","incident":{"id":10,"level":1}}`),
		message(1, `{"id":2,"type":"END","incident":{"id":10,"level":1}}`),
		message(2, `not json`),
		message(3, `{"id":3,"type":"CLO","incident":{"id":11,"level":2}}`),
	}}
	handler := &fakeHandler{}
	c := NewEventConsumer(reader, handler, 2, 20*time.Millisecond, logger.Nop())

	runConsumer(t, c, func() bool { return reader.committedCount() == 4 })

	batches := handler.snapshot()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %v", batches)
	}
	if len(batches[0]) != 2 || batches[0][0] != 1 || batches[0][1] != 2 {
		t.Errorf("unexpected first batch: %v", batches[0])
	}
	if len(batches[1]) != 1 || batches[1][0] != 3 {
		t.Errorf("expected the malformed message to be skipped, got %v", batches[1])
	}
	if !reader.closed {
		t.Error("expected reader to be closed on shutdown")
	}
}

func TestEventConsumer_FlushInterval(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(0, `{"id":7,"type":"STA","incident":{"id":70,"level":1}}`),
	}}
	handler := &fakeHandler{}
	c := NewEventConsumer(reader, handler, 50, 10*time.Millisecond, logger.Nop())

	runConsumer(t, c, func() bool { return len(handler.snapshot()) == 1 })

	if got := handler.snapshot()[0]; len(got) != 1 || got[0] != 7 {
		t.Errorf("unexpected partial batch: %v", got)
	}
}

func TestEventConsumer_RetriesUntilHandlerRecovers(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(0, `{"id":1,"type":"STA","incident":{"id":10,"level":1}}`),
		message(1, `{"id":2,"type":"XXX","incident":{"id":10,"level":1}}`),
	}}
	handler := &fakeHandler{failures: 2}
	c := NewEventConsumer(reader, handler, 2, 5*time.Millisecond, logger.Nop())

	runConsumer(t, c, func() bool { return reader.committedCount() == 2 })

	batches := handler.snapshot()
	if len(batches) != 3 {
		t.Fatalf("expected two failed attempts and one success, got %v", batches)
	}
	if len(batches[0]) != 2 {
		t.Errorf("expected the first attempt to carry the whole batch, got %v", batches[0])
	}
	for _, b := range batches[1:] {
		if len(b) != 1 || b[0] != 1 {
			t.Errorf("expected retries to carry only the unqueued event, got %v", b)
		}
	}
}

func TestEventConsumer_MixedBatchCommitsAfterSkippingInvalid(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(0, `{"id":1,"type":"STA","incident":{"id":10,"level":1}}`),
		message(1, `{"id":2,"type":"XXX","incident":{"id":10,"level":1}}`),
		message(2, `{"id":3,"type":"END","incident":{"id":10,"level":1}}`),
	}}
	handler := &fakeHandler{}
	c := NewEventConsumer(reader, handler, 3, 10*time.Millisecond, logger.Nop())

	runConsumer(t, c, func() bool { return reader.committedCount() == 3 })

	if batches := handler.snapshot(); len(batches) != 1 {
		t.Fatalf("expected a single attempt for the mixed batch, got %v", batches)
	}
	rejected := handler.rejections()
	if len(rejected) != 1 || rejected[0].EventID != 2 || rejected[0].Index != 1 {
		t.Errorf("expected event 2 to be rejected, got %+v", rejected)
	}
}

func TestEventConsumer_ShutdownDuringRetrySkipsCommit(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(0, `{"id":1,"type":"STA","incident":{"id":10,"level":1}}`),
	}}
	handler := &fakeHandler{failures: 1 << 30}
	c := NewEventConsumer(reader, handler, 1, 10*time.Millisecond, logger.Nop())

	runConsumer(t, c, func() bool { return len(handler.snapshot()) >= 2 })

	if n := reader.committedCount(); n != 0 {
		t.Errorf("expected no commits for a batch that never succeeded, got %d", n)
	}
}
