// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/classcheck/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestMemoryBusDeliversToAllSubscribers(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()
	s1, err := b.Subscribe(ctx, "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s1.Close() })
	s2, err := b.Subscribe(ctx, "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	require.NoError(t, b.Publish(ctx, "topic", "hello"))
	require.Equal(t, "hello", <-s1.C())
	require.Equal(t, "hello", <-s2.C())
}

func TestMemoryBusPublishContextTimeoutIncrementsDropMetrics(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	// Fill subscriber channel to capacity so next publish blocks.
	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", "msg"))
	}

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "topic", "blocked")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	final := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))
	require.Greater(t, final, initial, "expected reasoned bus drop counter to increase")
}

func TestMemoryBusTryPublishNeverBlocks(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "full")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < cap(sub.C()); i++ {
		require.True(t, b.TryPublish("full", i))
	}
	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("full", "full"))
	require.False(t, b.TryPublish("full", "overflow"))
	require.Greater(t, getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("full", "full")), initial)
}

func TestMemoryBusPublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // nil context is the point of the test
	err := b.Publish(nil, "topic", "msg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "context is nil")
}

func TestMemoryBusSubscriptionClosesWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Subscribe(ctx, "topic")
	require.NoError(t, err)
	require.Equal(t, 1, b.Subscribers("topic"))

	cancel()
	select {
	case _, ok := <-sub.C():
		require.False(t, ok, "channel should be closed after context cancellation")
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
	require.NoError(t, sub.Close(), "Close after context close is a no-op")
	require.Equal(t, 0, b.Subscribers("topic"))
	require.True(t, b.TryPublish("topic", "nobody listening"))
}
