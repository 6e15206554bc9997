package server

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arbmon/internal/model"
)

func TestHubThrottleFollowsSettings(t *testing.T) {
	var throttleMS atomic.Int64
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	h := NewHub(logger, func() time.Duration {
		return time.Duration(throttleMS.Load()) * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &client{send: make(chan []byte, sendBufferSize)}
	h.register <- c

	recv := func(timeout time.Duration) bool {
		select {
		case <-c.send:
			return true
		case <-time.After(timeout):
			return false
		}
	}

	h.Publish(model.Snapshot{Connected: true})
	assert.True(t, recv(time.Second), "zero throttle delivers immediately")

	// Raising the throttle at runtime must hold the very next update for the
	// new window, without a reconnect or restart.
	throttleMS.Store(int64((10 * time.Minute) / time.Millisecond))
	h.Publish(model.Snapshot{Connected: true})
	assert.False(t, recv(100*time.Millisecond), "update held for the widened window")
}
