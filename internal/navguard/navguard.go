// Package navguard keeps the page usable across back/forward navigation,
// restores from the page cache and unloads. It clears loading state that
// no handler will ever finish, stops polling and aborts tracked requests.
package navguard

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/aksjeradar/aksjeradar/internal/clock"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

const (
	DefaultSafetyNetDelay = 5 * time.Second
	DefaultClickReset     = time.Second
)

// Interval is a periodic job the guard can pause and resume.
type Interval interface {
	Start()
	Stop()
}

// running is implemented by intervals that know whether they are active.
// Intervals without it count as running.
type running interface {
	Running() bool
}

// Sweep counts what a cleanup touched.
type Sweep struct {
	Overlays  int
	Buttons   int
	Spinners  int
	Intervals int
	Aborted   int
	Charts    int
}

// Guard reacts to page lifecycle events. Handlers run synchronously: the
// page is clean when they return.
type Guard struct {
	doc   *ui.Document
	clock clock.Clock

	SafetyNetDelay time.Duration
	ClickReset     time.Duration

	mu        sync.Mutex
	intervals []Interval
	paused    []Interval
	charts    []io.Closer
	inflight  map[uint64]context.CancelFunc
	nextID    uint64
	safetyNet clock.Timer
}

func New(doc *ui.Document, c clock.Clock) *Guard {
	if c == nil {
		c = clock.Real()
	}
	return &Guard{
		doc:            doc,
		clock:          c,
		SafetyNetDelay: DefaultSafetyNetDelay,
		ClickReset:     DefaultClickReset,
		inflight:       make(map[uint64]context.CancelFunc),
	}
}

// RegisterInterval adds a polling job stopped by cleanup.
func (g *Guard) RegisterInterval(iv Interval) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intervals = append(g.intervals, iv)
}

// RegisterChart adds a rendering resource released on unload.
func (g *Guard) RegisterChart(c io.Closer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charts = append(g.charts, c)
}

// Track derives a context that cleanup cancels. The returned func must
// be called when the request completes.
func (g *Guard) Track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.inflight[id] = cancel
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		delete(g.inflight, id)
		g.mu.Unlock()
		cancel()
	}
}

// InFlight reports the number of tracked requests.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// PopState handles back/forward navigation.
func (g *Guard) PopState() Sweep {
	return g.cleanup("popstate")
}

// PageShow handles a page show. Only a restore from the page cache
// triggers cleanup.
func (g *Guard) PageShow(persisted bool) Sweep {
	if !persisted {
		return Sweep{}
	}
	return g.cleanup("pageshow")
}

// BeforeUnload cleans up and releases chart resources.
func (g *Guard) BeforeUnload() Sweep {
	s := g.cleanup("beforeunload")

	g.mu.Lock()
	charts := g.charts
	g.charts = nil
	g.mu.Unlock()
	for _, c := range charts {
		if err := c.Close(); err != nil {
			log.Printf("[navguard] closing chart: %v", err)
		}
		s.Charts++
	}
	return s
}

// VisibilityChange pauses polling while the page is hidden. Coming back
// resumes the intervals it paused and clears loading state left behind in
// the meantime. Intervals that were already stopped stay stopped.
func (g *Guard) VisibilityChange(visible bool) Sweep {
	g.doc.SetHidden(!visible)
	if !visible {
		g.mu.Lock()
		var paused []Interval
		for _, iv := range g.intervals {
			if r, ok := iv.(running); ok && !r.Running() {
				continue
			}
			paused = append(paused, iv)
		}
		// A second hide keeps what the first one paused.
		for _, iv := range g.paused {
			if !contains(paused, iv) {
				paused = append(paused, iv)
			}
		}
		g.paused = paused
		g.mu.Unlock()
		for _, iv := range paused {
			iv.Stop()
		}
		return Sweep{Intervals: len(paused)}
	}

	g.mu.Lock()
	paused := g.paused
	g.paused = nil
	g.mu.Unlock()
	for _, iv := range paused {
		iv.Start()
	}
	return g.sweepLoading()
}

// StartSafetyNet schedules one unconditional sweep of stuck loading state.
func (g *Guard) StartSafetyNet() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.safetyNet != nil {
		g.safetyNet.Stop()
	}
	g.safetyNet = g.clock.AfterFunc(g.SafetyNetDelay, func() {
		s := g.sweepLoading()
		if s.Overlays+s.Buttons+s.Spinners > 0 {
			log.Printf("[navguard] safety net cleared %d overlays, %d buttons, %d spinners", s.Overlays, s.Buttons, s.Spinners)
		}
	})
}

// FollowLink navigates to el's href unless el was clicked within the
// reset window. It reports whether the navigation happened.
func (g *Guard) FollowLink(el *ui.Element) bool {
	href := el.Attr(ui.AttrHref)
	if href == "" {
		return false
	}
	if !el.SetAttrIfAbsent(ui.AttrClicked, "true") {
		log.Printf("[navguard] suppressed repeated click on %s", href)
		return false
	}
	g.clock.AfterFunc(g.ClickReset, func() { el.RemoveAttr(ui.AttrClicked) })
	g.doc.Navigate(href)
	return true
}

// Close stops the safety net.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.safetyNet != nil {
		g.safetyNet.Stop()
		g.safetyNet = nil
	}
}

func (g *Guard) cleanup(reason string) Sweep {
	s := g.sweepLoading()

	g.mu.Lock()
	intervals := append([]Interval(nil), g.intervals...)
	g.paused = nil
	cancels := make([]context.CancelFunc, 0, len(g.inflight))
	for id, cancel := range g.inflight {
		cancels = append(cancels, cancel)
		delete(g.inflight, id)
	}
	g.mu.Unlock()

	for _, iv := range intervals {
		iv.Stop()
	}
	for _, cancel := range cancels {
		cancel()
	}
	s.Intervals, s.Aborted = len(intervals), len(cancels)
	log.Printf("[navguard] %s: %d overlays, %d buttons, %d spinners, %d intervals, %d requests aborted",
		reason, s.Overlays, s.Buttons, s.Spinners, s.Intervals, s.Aborted)
	return s
}

// sweepLoading hides overlays and undoes loading state on every element
// without the permanent marker.
func (g *Guard) sweepLoading() Sweep {
	var s Sweep
	for _, el := range g.doc.Find(func(*ui.Element) bool { return true }) {
		role := el.Attr(ui.AttrRole)
		switch {
		case role == ui.RoleLoadingOverlay:
			if el.Visible() {
				el.SetDisplay("none")
				s.Overlays++
			}
		case el.Permanent():
		case ui.Loading(el):
			ui.EndLoading(el)
			s.Spinners++
		case role == ui.RoleSpinner && el.Visible():
			el.SetDisplay("none")
			s.Spinners++
		case el.Disabled():
			el.SetDisabled(false)
			s.Buttons++
		}
	}
	return s
}

func contains(list []Interval, iv Interval) bool {
	for _, cur := range list {
		if cur == iv {
			return true
		}
	}
	return false
}
