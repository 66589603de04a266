// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package presence

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultSampleBuffer = 16

// ChannelClassifier adapts pushed samples (for example from an external audio
// classifier posting over HTTP) to the Classifier contract. Samples pushed
// while nobody listens, or while the listener is behind, are dropped.
// A new Listen call detaches the previous listener.
type ChannelClassifier struct {
	mu      sync.Mutex
	cur     *listener
	buffer  int
	dropped atomic.Uint64
}

type listener struct {
	ch     chan bool
	closed bool
}

// Caller must hold the classifier lock.
func (l *listener) close() {
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}

// NewChannelClassifier returns a classifier with a small sample buffer.
func NewChannelClassifier() *ChannelClassifier {
	return &ChannelClassifier{buffer: defaultSampleBuffer}
}

// Listen attaches a listener until ctx is done.
func (c *ChannelClassifier) Listen(ctx context.Context) (<-chan bool, error) {
	l := &listener{ch: make(chan bool, c.buffer)}

	c.mu.Lock()
	if c.cur != nil {
		c.cur.close()
	}
	c.cur = l
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		l.close()
		if c.cur == l {
			c.cur = nil
		}
		c.mu.Unlock()
	}()
	return l.ch, nil
}

// Push offers one sample. It never blocks and reports whether a listener
// received it.
func (c *ChannelClassifier) Push(heard bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.closed {
		c.dropped.Add(1)
		return false
	}
	select {
	case c.cur.ch <- heard:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Listening reports whether a listener is attached.
func (c *ChannelClassifier) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

// Dropped returns the number of samples nobody received.
func (c *ChannelClassifier) Dropped() uint64 {
	return c.dropped.Load()
}
