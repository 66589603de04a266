// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/classcheck/internal/bus"
	"github.com/ManuGH/classcheck/internal/domain/attendance/model"
	"github.com/ManuGH/classcheck/internal/log"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func newTestLogger() (*Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return NewLoggerWith(zerolog.New(buf)), buf
}

func TestLogSetsTimestampAndDetails(t *testing.T) {
	l, buf := newTestLogger()
	l.Log(Event{
		Type:     EventReset,
		Actor:    "system",
		Action:   "reset",
		Resource: "attempt-1",
		Result:   "success",
		Details:  map[string]string{"why": "test"},
	})

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "audit", lines[0]["log_type"])
	assert.Equal(t, "attendance.reset", lines[0]["event_type"])
	assert.Equal(t, "test", lines[0]["why"])
	assert.NotEmpty(t, lines[0]["timestamp"])
}

func TestLogRequestExtractsClient(t *testing.T) {
	l, buf := newTestLogger()
	r := httptest.NewRequest(http.MethodPost, "/v1/biometric", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("User-Agent", "scanner/1.0")
	r = r.WithContext(log.ContextWithRequestID(r.Context(), "req-7"))

	l.Biometric(r, "failed", "no match")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	got := lines[0]
	assert.Equal(t, "10.1.2.3", got["actor"])
	assert.Equal(t, "10.1.2.3", got["remote_addr"])
	assert.Equal(t, "scanner/1.0", got["user_agent"])
	assert.Equal(t, "req-7", got["request_id"])
	assert.Equal(t, "/v1/biometric", got["resource"])
	assert.Equal(t, "failed", got["result"])
	assert.Equal(t, "no match", got["reason"])
}

func TestPermissionsDenied(t *testing.T) {
	l, buf := newTestLogger()
	l.Permissions(httptest.NewRequest(http.MethodPost, "/v1/permissions", nil), false)
	assert.Equal(t, "denied", buf.lines(t)[0]["result"])
}

func TestStageFollowerRecordsTerminalStages(t *testing.T) {
	l, buf := newTestLogger()
	b := bus.NewMemoryBus()
	f := NewStageFollower(l, b, "21CS042")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return b.Subscribers(model.TopicStage) == 1 }, time.Second, 5*time.Millisecond)

	b.TryPublish(model.TopicStage, model.StageChanged{
		From: model.StageAwaitingPermissions,
		To:   model.StageListeningForPresence,
	})
	b.TryPublish(model.TopicStage, model.StageChanged{
		From:      model.StageSubmitting,
		To:        model.StageSucceeded,
		AttemptID: "attempt-1",
	})
	b.TryPublish(model.TopicStage, model.StageChanged{
		From:      model.StageSubmitting,
		To:        model.StageFailed,
		AttemptID: "attempt-2",
		Reason:    "duplicate",
	})

	require.Eventually(t, func() bool { return len(buf.lines(t)) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	lines := buf.lines(t)
	assert.Equal(t, "attendance.recorded", lines[0]["event_type"])
	assert.Equal(t, "21CS042", lines[0]["actor"])
	assert.Equal(t, "attempt-1", lines[0]["resource"])
	assert.Equal(t, "attendance.failed", lines[1]["event_type"])
	assert.Equal(t, "duplicate", lines[1]["reason"])
}
