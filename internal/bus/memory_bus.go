// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/classcheck/internal/log"
	"github.com/ManuGH/classcheck/internal/metrics"
)

// MemoryBus is an in-memory pub/sub. It is not durable; Publish blocks per
// subscriber until delivery or ctx cancellation, TryPublish never blocks.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

const (
	dropLogEvery      = 100
	defaultSubscriber = 64
)

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: defaultSubscriber}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) snapshot(topic string) []*memSub {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*memSub(nil), b.subs[topic]...)
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	for _, s := range b.snapshot(topic) {
		if err := s.send(ctx, msg); err != nil {
			reason := publishDropReason(err)
			recordDrop(topic, reason)
			return fmt.Errorf("publish topic %q: %w", topic, err)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// TryPublish delivers msg to every subscriber with free buffer space and drops
// it for the others. It reports whether every subscriber received it.
func (b *MemoryBus) TryPublish(topic string, msg Message) bool {
	all := true
	for _, s := range b.snapshot(topic) {
		if !s.trySend(msg) {
			recordDrop(topic, "full")
			all = false
		}
	}
	return all
}

func recordDrop(topic, reason string) {
	metrics.IncBusDropReason(topic, reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 0 {
		log.L().Warn().
			Str("topic", topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped messages")
	}
}

// Subscribe registers a subscriber. The subscription is closed when ctx is
// done or Close is called, whichever happens first.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	if ctx == nil {
		return nil, fmt.Errorf("subscribe context is nil")
	}
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.buffer), done: make(chan struct{})}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

type memSub struct {
	b     *MemoryBus
	topic string

	// mu guards ch against close while a sender holds it.
	mu     sync.RWMutex
	ch     chan Message
	closed bool
	done   chan struct{}
	once   sync.Once
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) send(ctx context.Context, msg Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) trySend(msg Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		close(s.done)

		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch) // Signal subscriber to stop
		s.mu.Unlock()
	})
	return nil
}

// Ensure compliance
var _ Bus = (*MemoryBus)(nil)
