// Package realtime assembles the client services for one page session and
// owns their lifetimes. Everything is created in NewSession, started in
// Open and torn down in Close in reverse order.
package realtime

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/aksjeradar/aksjeradar/internal/actions"
	"github.com/aksjeradar/aksjeradar/internal/apiclient"
	"github.com/aksjeradar/aksjeradar/internal/clock"
	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/favorites"
	"github.com/aksjeradar/aksjeradar/internal/navguard"
	"github.com/aksjeradar/aksjeradar/internal/polling"
	"github.com/aksjeradar/aksjeradar/internal/prefs"
	"github.com/aksjeradar/aksjeradar/internal/telemetry"
	"github.com/aksjeradar/aksjeradar/internal/toast"
	"github.com/aksjeradar/aksjeradar/internal/transport"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

// Session is the set of services bound to one document.
type Session struct {
	Doc       *ui.Document
	Toasts    *toast.Presenter
	Router    *transport.ErrorRouter
	Cache     *transport.Cache
	API       *apiclient.Client
	Reporter  *telemetry.Reporter
	Polling   *polling.Service
	Favorites *favorites.Controller
	Guard     *navguard.Guard
	Actions   *actions.Actions
	Prefs     *prefs.Store

	cfg config.ClientConfig

	mu        sync.RWMutex
	token     string
	csrfToken string
	closed    bool
}

type options struct {
	clock clock.Clock
	base  http.RoundTripper
}

// Option customizes NewSession.
type Option func(*options)

// WithClock drives every timer of the session from c.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithTransport sets the innermost RoundTripper.
func WithTransport(rt http.RoundTripper) Option { return func(o *options) { o.base = rt } }

// NewSession builds the services without starting them.
func NewSession(cfg config.ClientConfig, doc *ui.Document, sink toast.Sink, opts ...Option) (*Session, error) {
	o := options{clock: clock.Real(), base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	if sink == nil {
		sink = toast.LogSink{}
	}

	filter := toast.DefaultFilter()
	if cfg.ToastFilter != "" {
		f, err := toast.LoadFilter(cfg.ToastFilter)
		if err != nil {
			return nil, err
		}
		filter = f
	}
	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	s := &Session{Doc: doc, Prefs: store, cfg: cfg, token: cfg.Token}
	s.Toasts = toast.NewPresenter(sink, filter, doc.Path)
	s.Router = transport.NewErrorRouter(s.Toasts, doc, o.clock)
	s.Cache = transport.NewCache(cfg.CacheTTL, o.clock)

	retry := transport.DefaultRetryPolicy()
	retry.Clock = o.clock
	rt := transport.Chain(o.base,
		transport.Routing(s.Router),
		transport.Retry(retry),
		s.Cache.Middleware(),
		transport.CSRF(s.CSRFToken),
		transport.Bearer(s.Token),
	)
	s.API = apiclient.New(cfg.BaseURL, rt)

	s.Reporter = telemetry.New(s.API, s.Toasts, doc.Path)
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = polling.DefaultInterval
	}
	s.Polling = polling.New(s.API,
		polling.WithInterval(interval),
		polling.WithClock(o.clock),
		polling.WithRecoverer(s.Reporter),
	)
	s.Guard = navguard.New(doc, o.clock)
	s.Guard.RegisterInterval(s.Polling)
	s.Favorites = favorites.New(s.API, doc, s.Toasts,
		favorites.WithRecoverer(s.Reporter),
		favorites.WithTracker(s.Guard),
	)
	s.Actions = actions.New(s.API, s.Toasts).WithTracker(s.Guard)
	return s, nil
}

// Token returns the bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CSRFToken returns the token attached to mutating requests.
func (s *Session) CSRFToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrfToken
}

// Connect logs in when no token is configured and fetches the CSRF
// token. A missing CSRF token is reported but not fatal; the server
// refuses mutations without it while reads keep working.
func (s *Session) Connect(ctx context.Context) error {
	if s.Token() == "" && s.cfg.Username != "" {
		token, err := s.API.Login(ctx, s.cfg.Username, s.cfg.Password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		s.mu.Lock()
		s.token = token
		s.mu.Unlock()
	}

	csrf, err := s.API.CSRFToken(transport.NoRetry(transport.NoCache(ctx)))
	if err != nil {
		log.Printf("[realtime] no csrf token: %v", err)
		s.Reporter.Report(ctx, telemetry.KindError, err)
	}
	s.mu.Lock()
	s.csrfToken = csrf
	s.mu.Unlock()
	return nil
}

// Open connects, wires favorite buttons, starts polling and arms the
// safety net.
func (s *Session) Open(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	wired := s.Favorites.Init(ctx)
	s.Polling.Start()
	s.Guard.StartSafetyNet()
	log.Printf("[realtime] session open on %s (%d favorite buttons)", s.Doc.Path(), wired)
	return nil
}

// Close releases every service. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.Guard.BeforeUnload()
	s.Guard.Close()
	s.Polling.Close()
	s.Reporter.Wait()
	s.Cache.Purge()
	log.Println("[realtime] session closed")
}
