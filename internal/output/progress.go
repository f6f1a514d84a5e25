package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner shows that a long remote step is still running, with its
// elapsed time
type Spinner struct {
	writer   io.Writer
	title    string
	chars    []string
	interval time.Duration
	noColor  bool

	mu      sync.Mutex
	index   int
	started time.Time
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner writing to w
func NewSpinner(w io.Writer, title string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		title:    title,
		chars:    []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 100 * time.Millisecond,
		noColor:  noColor,
	}
}

// Start begins rendering until Stop is called
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	s.started = time.Now()
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	go func(done, stopped chan struct{}) {
		defer close(stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.render()
			case <-done:
				return
			}
		}
	}(s.done, s.stopped)
}

// Stop clears the spinner line and returns the elapsed time
func (s *Spinner) Stop() time.Duration {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return 0
	}
	close(done)
	<-stopped

	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.line())+2))
	return time.Since(s.started)
}

func (s *Spinner) render() {
	s.mu.Lock()
	char := s.chars[s.index]
	s.index = (s.index + 1) % len(s.chars)
	s.mu.Unlock()

	fmt.Fprintf(s.writer, "\r%s %s", s.colorize(char, color.FgCyan), s.line())
}

func (s *Spinner) line() string {
	return fmt.Sprintf("%s (%s)", s.title, formatDuration(time.Since(s.started)))
}

func (s *Spinner) colorize(text string, attrs ...color.Attribute) string {
	if s.noColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
