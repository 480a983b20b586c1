// Package toast is the shared mechanism for transient user-facing
// messages. Every realtime service reports success and failure through a
// Presenter, which applies the page and keyword filters before handing the
// toast to a Sink.
package toast

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type selects the colour and icon of a toast.
type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

type style struct {
	color    string
	icon     string
	duration time.Duration
}

var styles = map[Type]style{
	Success: {color: "#28a745", icon: "bi-check-circle-fill", duration: 3 * time.Second},
	Info:    {color: "#17a2b8", icon: "bi-info-circle-fill", duration: 4 * time.Second},
	Warning: {color: "#ffc107", icon: "bi-exclamation-triangle-fill", duration: 5 * time.Second},
	Error:   {color: "#dc3545", icon: "bi-x-circle-fill", duration: 6 * time.Second},
}

// Options tune a single toast.
type Options struct {
	// Duration overrides the per-type default. Ignored when Persistent.
	Duration time.Duration
	// Persistent toasts are never auto-dismissed and have no close button.
	Persistent bool
	// AllowRetry embeds a reload action in the toast.
	AllowRetry bool
}

// Toast is a rendered notification handed to a Sink.
type Toast struct {
	ID         string
	Message    string
	Type       Type
	Color      string
	Icon       string
	Duration   time.Duration
	Persistent bool
	Closable   bool
	Retry      bool
	Path       string
	CreatedAt  time.Time
}

// Sink displays toasts.
type Sink interface {
	Display(t Toast)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Toast)

func (f SinkFunc) Display(t Toast) { f(t) }

// Presenter builds, filters and dispatches toasts.
type Presenter struct {
	sink   Sink
	path   func() string
	now    func() time.Time
	mu     sync.RWMutex
	filter Filter
}

// NewPresenter returns a Presenter writing to sink. path reports the
// current page path used by the filter; it may be nil.
func NewPresenter(sink Sink, filter Filter, path func() string) *Presenter {
	if path == nil {
		path = func() string { return "" }
	}
	return &Presenter{sink: sink, filter: filter, path: path, now: time.Now}
}

// SetFilter replaces the active filter.
func (p *Presenter) SetFilter(f Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
}

// Show displays message unless the filter blocks it. The returned bool
// reports whether the toast reached the sink.
func (p *Presenter) Show(message string, typ Type, opts Options) (Toast, bool) {
	st, ok := styles[typ]
	if !ok {
		typ, st = Info, styles[Info]
	}
	path := p.path()

	p.mu.RLock()
	filter := p.filter
	p.mu.RUnlock()
	if blocked, reason := filter.Blocks(path, message); blocked {
		log.Printf("[toast] blocked %s toast on %s (%s): %q", typ, path, reason, message)
		return Toast{}, false
	}

	t := Toast{
		ID:         uuid.NewString(),
		Message:    message,
		Type:       typ,
		Color:      st.color,
		Icon:       st.icon,
		Duration:   st.duration,
		Persistent: opts.Persistent,
		Closable:   !opts.Persistent,
		Retry:      opts.AllowRetry,
		Path:       path,
		CreatedAt:  p.now(),
	}
	if opts.Duration > 0 {
		t.Duration = opts.Duration
	}
	if opts.Persistent {
		t.Duration = 0
	}
	p.sink.Display(t)
	return t, true
}

func (p *Presenter) Success(message string) { p.Show(message, Success, Options{}) }
func (p *Presenter) Error(message string)   { p.Show(message, Error, Options{}) }
func (p *Presenter) Warning(message string) { p.Show(message, Warning, Options{}) }
func (p *Presenter) Info(message string)    { p.Show(message, Info, Options{}) }
