// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type submitted struct {
	gen uint64
	raw string
}

type fakeWindow struct {
	mu    sync.Mutex
	gen   uint64
	open  bool
	codes []submitted
}

func (w *fakeWindow) ScanWindow() (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen, w.open
}

func (w *fakeWindow) SubmitCode(gen uint64, raw string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.codes = append(w.codes, submitted{gen: gen, raw: raw})
}

func (w *fakeWindow) set(gen uint64, open bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen, w.open = gen, open
}

func (w *fakeWindow) got() []submitted {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]submitted(nil), w.codes...)
}

type recognizerFunc func(context.Context, Frame) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, fr Frame) (string, error) { return f(ctx, fr) }

// blockingRecognizer holds every call until released.
type blockingRecognizer struct {
	started chan Frame
	release chan struct{}
	text    string
	err     error
}

func newBlockingRecognizer(text string) *blockingRecognizer {
	return &blockingRecognizer{
		started: make(chan Frame, 16),
		release: make(chan struct{}),
		text:    text,
	}
}

func (r *blockingRecognizer) Recognize(ctx context.Context, f Frame) (string, error) {
	r.started <- f
	select {
	case <-r.release:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestOfferDropsWhenWindowClosed(t *testing.T) {
	w := &fakeWindow{}
	d := NewDebouncer(TextRecognizer{}, w, Config{})
	defer d.Close()

	assert.False(t, d.Offer(Frame{Data: []byte("CLASS_SESSION_a")}))
	st := d.Stats()
	assert.Equal(t, uint64(1), st.Received)
	assert.Equal(t, uint64(1), st.DroppedInactive)
	assert.Zero(t, st.Submitted)
	assert.Empty(t, w.got())
}

func TestOfferDropsNewestWhileBusy(t *testing.T) {
	w := &fakeWindow{gen: 1, open: true}
	rec := newBlockingRecognizer("CLASS_SESSION_a")
	d := NewDebouncer(rec, w, Config{})
	defer d.Close()

	require.True(t, d.Offer(Frame{Seq: 1}))
	first := <-rec.started
	assert.Equal(t, uint64(1), first.Seq)

	for i := 2; i <= 10; i++ {
		assert.False(t, d.Offer(Frame{Seq: uint64(i)}))
	}
	assert.True(t, d.Busy())

	close(rec.release)
	require.Eventually(t, func() bool { return !d.Busy() }, time.Second, 5*time.Millisecond)

	st := d.Stats()
	assert.Equal(t, uint64(1), st.Submitted)
	assert.Equal(t, uint64(9), st.DroppedBusy)
	assert.Equal(t, uint64(1), st.Forwarded)
	assert.Equal(t, []submitted{{gen: 1, raw: "CLASS_SESSION_a"}}, w.got())
}

func TestStaleResultDiscarded(t *testing.T) {
	tests := []struct {
		name    string
		nextGen uint64
		open    bool
	}{
		{name: "window closed", nextGen: 1, open: false},
		{name: "new burst", nextGen: 2, open: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWindow{gen: 1, open: true}
			rec := newBlockingRecognizer("CLASS_SESSION_a")
			d := NewDebouncer(rec, w, Config{})
			defer d.Close()

			require.True(t, d.Offer(Frame{}))
			<-rec.started
			w.set(tt.nextGen, tt.open)
			close(rec.release)

			require.Eventually(t, func() bool { return !d.Busy() }, time.Second, 5*time.Millisecond)
			assert.Empty(t, w.got())
			assert.Equal(t, uint64(1), d.Stats().Stale)
		})
	}
}

func TestRecognitionErrorIsNonFatal(t *testing.T) {
	w := &fakeWindow{gen: 1, open: true}
	calls := 0
	var mu sync.Mutex
	rec := RecognizerFunc(func(_ context.Context, f Frame) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", errors.New("decoder crashed")
		}
		return string(f.Data), nil
	})
	d := NewDebouncer(rec, w, Config{})
	defer d.Close()

	require.True(t, d.Offer(Frame{Data: []byte("x")}))
	require.Eventually(t, func() bool { return !d.Busy() }, time.Second, 5*time.Millisecond)
	require.True(t, d.Offer(Frame{Data: []byte("CLASS_SESSION_b")}))
	require.Eventually(t, func() bool { return len(w.got()) == 1 }, time.Second, 5*time.Millisecond)

	st := d.Stats()
	assert.Equal(t, uint64(1), st.Errors)
	assert.Equal(t, uint64(1), st.Forwarded)
}

func TestEmptyResultNotForwarded(t *testing.T) {
	w := &fakeWindow{gen: 1, open: true}
	d := NewDebouncer(TextRecognizer{}, w, Config{})
	defer d.Close()

	require.True(t, d.Offer(Frame{Data: []byte("   \n")}))
	require.Eventually(t, func() bool { return d.Stats().Empty == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, w.got())
}

func TestRateLimit(t *testing.T) {
	w := &fakeWindow{gen: 1, open: true}
	d := NewDebouncer(TextRecognizer{}, w, Config{FramesPerSecond: 0.001})
	defer d.Close()

	require.True(t, d.Offer(Frame{Data: []byte("a")}))
	require.Eventually(t, func() bool { return !d.Busy() }, time.Second, 5*time.Millisecond)
	assert.False(t, d.Offer(Frame{Data: []byte("b")}))
	assert.Equal(t, uint64(1), d.Stats().DroppedRate)
	assert.False(t, d.Busy())
}

func TestCloseCancelsInFlight(t *testing.T) {
	w := &fakeWindow{gen: 1, open: true}
	rec := newBlockingRecognizer("CLASS_SESSION_a")
	d := NewDebouncer(rec, w, Config{})

	require.True(t, d.Offer(Frame{}))
	<-rec.started
	d.Close()

	assert.Empty(t, w.got())
	assert.False(t, d.Offer(Frame{}))
}

func TestOfferRacingClose(t *testing.T) {
	w := &fakeWindow{gen: 1, open: true}
	var calls atomic.Int64
	rec := recognizerFunc(func(context.Context, Frame) (string, error) {
		calls.Add(1)
		return "", nil
	})
	d := NewDebouncer(rec, w, Config{})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					d.Offer(Frame{Data: []byte("x")})
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	d.Close()
	after := calls.Load()
	time.Sleep(5 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Equal(t, after, calls.Load())
	assert.False(t, d.Busy())
	assert.False(t, d.Offer(Frame{Data: []byte("x")}))
}

func TestTextRecognizerRejectsBinary(t *testing.T) {
	_, err := TextRecognizer{}.Recognize(context.Background(), Frame{Data: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, ErrUndecodable)
}
