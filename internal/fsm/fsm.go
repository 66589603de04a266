// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when no edge exists for (state, event)
// or a guard rejected the edge.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes a single edge in the FSM.
// AnySource makes the edge valid from every state; From is ignored then.
// Guard may reject the transition and runs inside the critical section.
type Transition[S ~string, E ~string] struct {
	From      S
	AnySource bool
	Event     E
	To        S
	Guard     func(from S, event E) error
}

// Machine is a small, test-friendly FSM runner.
// It is intentionally strict: unknown transitions are errors. Guard check and
// state mutation happen under one lock, so concurrent Fire calls linearize.
type Machine[S ~string, E ~string] struct {
	mu       sync.Mutex
	state    S
	index    map[string]Transition[S, E]
	wildcard map[E]Transition[S, E]
}

func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	wild := make(map[E]Transition[S, E])
	for _, t := range transitions {
		if t.AnySource {
			if _, exists := wild[t.Event]; exists {
				return nil, fmt.Errorf("duplicate wildcard transition: * -> %s", t.Event)
			}
			wild[t.Event] = t
			continue
		}
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx, wildcard: wild}, nil
}

func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire attempts to apply an event atomically and returns the source and
// target states of the applied edge.
func (m *Machine[S, E]) Fire(event E) (from S, to S, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from = m.state
	t, ok := m.lookup(from, event)
	if !ok {
		return from, from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	if t.Guard != nil {
		if gerr := t.Guard(from, event); gerr != nil {
			return from, from, fmt.Errorf("%w: state=%s event=%s: %w", ErrInvalidTransition, from, event, gerr)
		}
	}
	m.state = t.To
	return from, t.To, nil
}

// Caller must hold lock.
func (m *Machine[S, E]) lookup(from S, event E) (Transition[S, E], bool) {
	if t, ok := m.index[key(from, event)]; ok {
		return t, true
	}
	t, ok := m.wildcard[event]
	return t, ok
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
