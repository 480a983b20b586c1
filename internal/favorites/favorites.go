// Package favorites drives the star buttons that add a ticker to the
// user's watchlist. Every button bound to the same symbol shows the same
// state; the server's answer, not the click, decides that state.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aksjeradar/aksjeradar/internal/keylock"
	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/toast"
	"github.com/aksjeradar/aksjeradar/internal/transport"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

// Button states stored in data-favorite-state. An unset attribute is Unknown.
const (
	StateUnknown      = ""
	StateLoading      = "loading"
	StateFavorited    = "favorited"
	StateNotFavorited = "not-favorited"
)

// Markup rendered for the terminal states.
const (
	FavoritedMarkup    = `<i class="bi bi-star-fill text-warning"></i>`
	NotFavoritedMarkup = `<i class="bi bi-star"></i>`
)

const toggleFailedMessage = "Kunne ikke oppdatere favoritter. Prøv igjen."

var (
	ErrNoSymbol = errors.New("favorites: button has no symbol")
	ErrBusy     = errors.New("favorites: button is already loading")

	// errStaleCheck marks a check that waited out a toggle.
	errStaleCheck = errors.New("favorites: toggled while waiting")
)

// RejectedError is a toggle the server answered with success=false.
type RejectedError struct {
	Symbol  string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("favorites: toggle %s rejected: %s", e.Symbol, e.Message)
}

// API is the subset of the watchlist endpoints the controller needs.
type API interface {
	ToggleWatchlist(ctx context.Context, symbol string) (models.ToggleResponse, error)
	CheckFavorite(ctx context.Context, symbol string) (bool, error)
}

// Recoverer is deferred in every goroutine the controller starts.
type Recoverer interface {
	Recover()
}

// Tracker registers a toggle so navigation can abort it.
type Tracker interface {
	Track(ctx context.Context) (context.Context, func())
}

type Option func(*Controller)

// WithRecoverer replaces the default recoverer, which only logs.
func WithRecoverer(r Recoverer) Option {
	return func(c *Controller) { c.recoverer = r }
}

// WithTracker registers every toggle request with t.
func WithTracker(t Tracker) Option {
	return func(c *Controller) { c.tracker = t }
}

type logRecoverer struct{}

func (logRecoverer) Recover() {
	if v := recover(); v != nil {
		log.Printf("[favorites] recovered panic: %v", v)
	}
}

type nopTracker struct{}

func (nopTracker) Track(ctx context.Context) (context.Context, func()) {
	return ctx, func() {}
}

// Controller wires favorite buttons and handles their clicks.
type Controller struct {
	api       API
	doc       *ui.Document
	toasts    *toast.Presenter
	recoverer Recoverer
	tracker   Tracker

	locks  *keylock.Map
	checks singleflight.Group

	// generation counts completed toggles per symbol. A check that
	// started before a toggle finished is discarded.
	mu         sync.Mutex
	generation map[string]uint64
	wired      int
}

func New(api API, doc *ui.Document, toasts *toast.Presenter, opts ...Option) *Controller {
	c := &Controller{
		api:        api,
		doc:        doc,
		toasts:     toasts,
		recoverer:  logRecoverer{},
		tracker:    nopTracker{},
		locks:      keylock.New(),
		generation: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init wires every favorite button not yet carrying the wired marker and
// checks the state of their symbols. It is safe to call again after new
// content is inserted; already wired buttons are skipped. Check failures
// are logged and never returned.
func (c *Controller) Init(ctx context.Context) int {
	var symbols []string
	seen := make(map[string]bool)
	n := 0
	for _, el := range c.doc.ByRole(ui.RoleFavoriteButton) {
		if !el.SetAttrIfAbsent(ui.AttrFavoriteWired, "true") {
			continue
		}
		n++
		sym := el.Symbol()
		if sym == "" {
			log.Printf("[favorites] button %q has no symbol", el.ID())
			continue
		}
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}

	c.mu.Lock()
	c.wired += n
	c.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(4)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			defer c.recoverer.Recover()
			c.Check(ctx, sym)
			return nil
		})
	}
	g.Wait()
	return n
}

// Wired reports how many buttons have had a handler attached.
func (c *Controller) Wired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wired
}

// Check asks the server whether symbol is a favorite and renders the
// answer on its buttons. A check holds the symbol's lock, so it never
// overlaps a toggle; concurrent checks between two toggles share a request.
func (c *Controller) Check(ctx context.Context, symbol string) {
	gen := c.currentGeneration(symbol)

	key := fmt.Sprintf("%s#%d", symbol, gen)
	v, err, _ := c.checks.Do(key, func() (interface{}, error) {
		unlock, err := c.locks.Lock(ctx, symbol)
		if err != nil {
			return false, err
		}
		defer unlock()
		if c.currentGeneration(symbol) != gen {
			return false, errStaleCheck
		}
		return c.api.CheckFavorite(ctx, symbol)
	})
	if errors.Is(err, errStaleCheck) {
		log.Printf("[favorites] discarding stale check for %s", symbol)
		return
	}
	if err != nil {
		log.Printf("[favorites] warning: check %s failed: %v", symbol, err)
		for _, el := range c.doc.BySymbol(ui.RoleFavoriteButton, symbol) {
			if el.Attr(ui.AttrFavoriteState) == StateUnknown {
				el.SetAttr(ui.AttrFavoriteState, StateNotFavorited)
			}
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation[symbol] != gen {
		log.Printf("[favorites] discarding stale check for %s", symbol)
		return
	}
	c.renderLocked(symbol, v.(bool), nil)
}

// Click toggles the favorite state of the button's symbol. The returned
// error has already been shown to the user.
func (c *Controller) Click(ctx context.Context, el *ui.Element) error {
	symbol := el.Symbol()
	if symbol == "" {
		log.Printf("[favorites] error: click on %q without data-symbol or data-ticker", el.ID())
		return ErrNoSymbol
	}

	prev := el.Attr(ui.AttrFavoriteState)
	if !ui.BeginLoading(el) {
		return ErrBusy
	}
	el.SetAttr(ui.AttrFavoriteState, StateLoading)

	ctx, done := c.tracker.Track(ctx)
	defer done()

	unlock, err := c.locks.Lock(ctx, symbol)
	if err != nil {
		c.rollback(el, prev)
		return err
	}
	defer unlock()

	resp, err := c.api.ToggleWatchlist(ctx, symbol)
	if err == nil && !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		err = &RejectedError{Symbol: symbol, Message: msg}
	}
	if err != nil {
		c.rollback(el, prev)
		c.notifyFailure(ctx, symbol, err)
		return err
	}

	added := resp.Action == models.WatchlistAdded
	c.mu.Lock()
	c.generation[symbol]++
	c.renderLocked(symbol, added, el)
	c.mu.Unlock()

	if added {
		c.toasts.Success(fmt.Sprintf("%s lagt til i favoritter", symbol))
	} else {
		c.toasts.Success(fmt.Sprintf("%s fjernet fra favoritter", symbol))
	}
	log.Printf("[favorites] %s %s", symbol, resp.Action)
	return nil
}

// Favorited reports the rendered state of el.
func Favorited(el *ui.Element) bool {
	return el.Attr(ui.AttrFavoriteState) == StateFavorited
}

func (c *Controller) currentGeneration(symbol string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation[symbol]
}

// renderLocked sets every button for symbol to the given state. clicked
// leaves its loading state; other buttons still loading are left alone.
func (c *Controller) renderLocked(symbol string, favorited bool, clicked *ui.Element) {
	state, markup := StateNotFavorited, NotFavoritedMarkup
	if favorited {
		state, markup = StateFavorited, FavoritedMarkup
	}
	for _, el := range c.doc.BySymbol(ui.RoleFavoriteButton, symbol) {
		switch {
		case el == clicked:
			ui.FinishLoading(el, markup)
		case ui.Loading(el):
			continue
		default:
			el.SetContent(markup)
		}
		el.SetAttr(ui.AttrFavoriteState, state)
	}
}

func (c *Controller) rollback(el *ui.Element, prev string) {
	ui.EndLoading(el)
	if prev == StateUnknown {
		el.RemoveAttr(ui.AttrFavoriteState)
	} else {
		el.SetAttr(ui.AttrFavoriteState, prev)
	}
}

func (c *Controller) notifyFailure(ctx context.Context, symbol string, err error) {
	log.Printf("[favorites] toggle %s failed: %v", symbol, err)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || transport.WasRouted(err) {
		return
	}
	var rejected *RejectedError
	var status *transport.StatusError
	switch {
	case transport.IsNetworkError(err):
		c.toasts.Error(transport.NetworkErrorMessage)
	case errors.As(err, &rejected) && rejected.Message != "":
		c.toasts.Error(rejected.Message)
	case errors.As(err, &status) && status.Message != "":
		c.toasts.Error(status.Message)
	default:
		c.toasts.Error(toggleFailedMessage)
	}
}
