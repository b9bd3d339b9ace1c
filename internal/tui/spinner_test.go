package tui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTerminalSpinner(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	t.Run("renders message and clears on stop", func(t *testing.T) {
		var buf lockedBuffer
		s := NewTerminalSpinner(context.Background(), &buf, "generating")
		assert.Eventually(t, func() bool { return strings.Contains(buf.String(), "generating") }, time.Second, 5*time.Millisecond)

		s.Update("almost there")
		assert.Eventually(t, func() bool { return strings.Contains(buf.String(), "almost there") }, time.Second, 5*time.Millisecond)

		s.Stop()
		s.Stop()
		assert.True(t, strings.HasSuffix(buf.String(), "\r\033[K"))
	})

	t.Run("stops when context is done", func(t *testing.T) {
		var buf lockedBuffer
		ctx, cancel := context.WithCancel(context.Background())
		s := NewTerminalSpinner(ctx, &buf, "waiting")
		cancel()

		select {
		case <-s.exited:
		case <-time.After(time.Second):
			t.Fatal("spinner did not exit")
		}
		s.Stop()
	})
}
