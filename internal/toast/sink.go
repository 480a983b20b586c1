package toast

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// LogSink writes toasts to the standard logger.
type LogSink struct{}

func (LogSink) Display(t Toast) {
	log.Printf("[toast] %s: %s", t.Type, t.Message)
}

// WriterSink renders toasts as single lines on w.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

var markers = map[Type]string{
	Success: "✔",
	Error:   "✖",
	Warning: "⚠",
	Info:    "ℹ",
}

func (s *WriterSink) Display(t Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("%s %s", markers[t.Type], t.Message)
	if t.Retry {
		line += " [Last inn på nytt]"
	}
	fmt.Fprintln(s.W, line)
}

// Recorder keeps every displayed toast in memory.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Display(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast and whether there was one.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Reset forgets the recorded toasts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = nil
}
