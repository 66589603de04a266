// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus provides in-process publish/subscribe used to broadcast
// attendance stage changes to presentation layers.
package bus

import "context"

// Message is an opaque payload delivered to subscribers.
type Message = any

// Bus publishes messages to topic subscribers.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	TryPublish(topic string, msg Message) bool
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Subscriber receives messages for one topic until closed.
type Subscriber interface {
	C() <-chan Message
	Close() error
}
