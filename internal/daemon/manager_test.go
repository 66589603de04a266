// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/classcheck/internal/log"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func testServerConfig(addr string) ServerConfig {
	cfg := DefaultServerConfig(addr)
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

func TestNewManager_ValidDeps(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestNewManager_InvalidDeps(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
		want error
	}{
		{"missing logger", Deps{Logger: zerolog.Nop(), APIHandler: http.NotFoundHandler()}, ErrMissingLogger},
		{"missing handler", Deps{Logger: log.WithComponent("test")}, ErrMissingAPIHandler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(testServerConfig("127.0.0.1:0"), tt.deps)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_StartServesAndShutsDown(t *testing.T) {
	apiAddr := reserveListenAddr(t)
	metricsAddr := reserveListenAddr(t)

	mgr, err := NewManager(testServerConfig(apiAddr), Deps{
		Logger: log.WithComponent("test"),
		APIHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		MetricsAddr: metricsAddr,
	})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"first", "second", "third"} {
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	require.NoError(t, waitForListen(apiAddr, 2*time.Second))
	require.NoError(t, waitForListen(metricsAddr, 2*time.Second))

	resp, err := http.Get("http://" + apiAddr + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp, err = http.Get("http://" + metricsAddr + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}

	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.NoError(t, mgr.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManager_StartTwice(t *testing.T) {
	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))

	assert.Error(t, mgr.Start(ctx))

	cancel()
	require.NoError(t, <-done)
}

func TestManager_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	mgr, err := NewManager(testServerConfig(ln.Addr().String()), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)

	hookRan := false
	mgr.RegisterShutdownHook("cleanup", func(context.Context) error {
		hookRan = true
		return nil
	})

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
	assert.True(t, hookRan)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mgr.RegisterShutdownHook("bad", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))
	cancel()

	err = <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
