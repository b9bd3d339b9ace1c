package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner is a progress indicator for a single blocking operation.
type Spinner interface {
	// Update replaces the message shown next to the spinner.
	Update(msg string)
	// Stop halts the animation and clears the line.
	Stop()
}

// NoopSpinner does nothing. It is used for JSON output and quiet mode.
type NoopSpinner struct{}

// Update implements Spinner.
func (NoopSpinner) Update(string) {}

// Stop implements Spinner.
func (NoopSpinner) Stop() {}

// ElapsedTimeThreshold is the duration after which elapsed time is shown.
const ElapsedTimeThreshold = 10 * time.Second

// TerminalSpinner animates the bubbles MiniDot frames on a single line.
// It stops on Stop or when ctx is done.
type TerminalSpinner struct {
	w       io.Writer
	frames  spinner.Spinner
	styles  *OutputStyles
	started time.Time

	mu      sync.Mutex
	message string
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// NewTerminalSpinner starts a spinner writing to w.
func NewTerminalSpinner(ctx context.Context, w io.Writer, msg string) *TerminalSpinner {
	s := &TerminalSpinner{
		w:       w,
		frames:  spinner.MiniDot,
		styles:  NewOutputStyles(),
		started: time.Now(),
		message: msg,
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *TerminalSpinner) run(ctx context.Context) {
	defer close(s.exited)

	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.render(frame)
		select {
		case <-ctx.Done():
			s.clear()
			return
		case <-s.done:
			s.clear()
			return
		case <-ticker.C:
		}
	}
}

func (s *TerminalSpinner) render(frame int) {
	s.mu.Lock()
	msg := s.message
	s.mu.Unlock()

	if elapsed := time.Since(s.started); elapsed >= ElapsedTimeThreshold {
		msg = fmt.Sprintf("%s (%s)", msg, elapsed.Round(time.Second))
	}
	glyph := s.frames.Frames[frame%len(s.frames.Frames)]
	_, _ = fmt.Fprintf(s.w, "\r\033[K%s %s", s.styles.Info.Render(glyph), msg)
}

func (s *TerminalSpinner) clear() {
	_, _ = fmt.Fprint(s.w, "\r\033[K")
}

// Update replaces the spinner message.
func (s *TerminalSpinner) Update(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
}

// Stop halts the spinner and waits for the line to be cleared. It is safe
// to call more than once.
func (s *TerminalSpinner) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)
	s.mu.Unlock()
	<-s.exited
}
