package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/store/memory"
)

func stoppedHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(memory.NewSignalBus(), slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "server", Pattern: "congressbot:*"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	return h
}

func TestHub_ConnectAfterShutdownDoesNotBlock(t *testing.T) {
	h := stoppedHub(t)

	returned := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(returned)
		h.HandleWS(w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("HandleWS blocked on a stopped hub")
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHub_LeaveAfterShutdownDoesNotBlock(t *testing.T) {
	h := stoppedHub(t)

	done := make(chan struct{})
	go func() {
		h.leave(&client{hub: h, send: make(chan []byte, 1)})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked on a stopped hub")
	}
}
