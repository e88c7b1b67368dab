package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/chunkstream/telemetry"
)

func testEvent() *telemetry.AnchorEvent {
	return &telemetry.AnchorEvent{
		PoolID:            "pool-001",
		Source:            "local-tar",
		ChunkAnchor:       "00001234",
		ChunksSinceAnchor: 42,
		Timestamp:         "2026-02-07T12:00:00Z",
	}
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Publish to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

func TestPublish_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = p.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	event := testEvent()
	if err := p.Publish(t.Context(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)

	var received telemetry.AnchorEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if received.PoolID != "pool-001" {
		t.Errorf("expected pool-001, got %s", received.PoolID)
	}
	if received.ChunkAnchor != "00001234" {
		t.Errorf("expected 00001234, got %s", received.ChunkAnchor)
	}
	if received.ChunksSinceAnchor != 42 {
		t.Errorf("expected 42, got %d", received.ChunksSinceAnchor)
	}
}

func TestPublish_DefaultChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = p.Close() }()

	if p.config.Channel != DefaultChannel {
		t.Errorf("expected default channel %q, got %q", DefaultChannel, p.config.Channel)
	}

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := p.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("expected channel %q, got %q", DefaultChannel, msg.Channel)
	}
}

func TestPublish_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	customChannel := "custom:anchor-updates"
	p, err := New(Config{URL: "redis://" + mr.Addr(), Channel: customChannel})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = p.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(customChannel)
	ch := asyncReceive(sub)

	if err := p.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != customChannel {
		t.Errorf("expected channel %q, got %q", customChannel, msg.Channel)
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	p, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 2, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = p.Close() }()

	err = p.Publish(t.Context(), testEvent())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	p, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	err = p.Publish(ctx, testEvent())
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{URL: "not-a-redis-url"})
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNew_RejectsNegativeRetries(t *testing.T) {
	_, err := New(Config{URL: "redis://localhost:6379", Retries: -1})
	if err == nil {
		t.Fatal("expected error for negative retries")
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = p.Close() }()

	if p.config.Channel != DefaultChannel {
		t.Errorf("expected default channel %q, got %q", DefaultChannel, p.config.Channel)
	}
	if p.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, p.config.Timeout)
	}
}

func TestClose_ClosesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	err = p.Publish(t.Context(), testEvent())
	if err == nil {
		t.Fatal("expected error after close")
	}
}
