package display

import (
	"image/color"
	"strings"
	"sync"
)

// Frame is one rendered screen.
type Frame struct {
	Lines []string
	FG    color.Color
	BG    color.Color
	Logo  bool
}

// Text returns the frame content joined by newlines.
func (f Frame) Text() string {
	return strings.Join(f.Lines, "\n")
}

// Recorder keeps rendered frames in memory. It backs headless runs and
// tests.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
	max    int
	online bool
}

var _ Display = (*Recorder)(nil)

// NewRecorder keeps at most max frames; zero keeps all.
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max}
}

func (r *Recorder) Text(s string, fg, bg color.Color) error {
	r.add(Frame{Lines: []string{s}, FG: fg, BG: bg})
	return nil
}

func (r *Recorder) Lines(lines []string, fg, bg color.Color) error {
	r.add(Frame{Lines: append([]string(nil), lines...), FG: fg, BG: bg})
	return nil
}

func (r *Recorder) Logo() error {
	r.add(Frame{Logo: true, FG: White, BG: Black})
	return nil
}

func (r *Recorder) SetOnline(online bool) {
	r.mu.Lock()
	r.online = online
	r.mu.Unlock()
}

func (r *Recorder) add(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	if r.max > 0 && len(r.frames) > r.max {
		r.frames = r.frames[len(r.frames)-r.max:]
	}
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Last returns the most recent frame.
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Reset drops recorded frames.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}
