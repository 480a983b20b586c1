package transport

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aksjeradar/aksjeradar/internal/clock"
	"github.com/aksjeradar/aksjeradar/internal/toast"
)

// RoutedHeader marks responses that were already dispatched to the
// StatusHandler.
const RoutedHeader = "X-Aksjeradar-Routed"

// StatusHandler receives every completed response with status >= 400.
type StatusHandler interface {
	HandleStatus(req *http.Request, resp *http.Response)
}

// Routing dispatches error responses to h. The response itself is passed
// through untouched apart from RoutedHeader.
func Routing(h StatusHandler) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode < 400 || flag(req.Context(), quietKey) {
				return resp, err
			}
			h.HandleStatus(req, resp)
			resp.Header.Set(RoutedHeader, "1")
			return resp, nil
		})
	}
}

// Navigator is the page location the router redirects on 401.
type Navigator interface {
	Path() string
	Navigate(url string)
}

// ErrorRouter turns error statuses into Norwegian toasts.
type ErrorRouter struct {
	toasts        *toast.Presenter
	nav           Navigator
	clock         clock.Clock
	LoginPath     string
	RedirectDelay time.Duration

	mu         sync.Mutex
	redirected bool
}

// NewErrorRouter returns a router that redirects to /login two seconds
// after a 401.
func NewErrorRouter(toasts *toast.Presenter, nav Navigator, c clock.Clock) *ErrorRouter {
	if c == nil {
		c = clock.Real()
	}
	return &ErrorRouter{
		toasts:        toasts,
		nav:           nav,
		clock:         c,
		LoginPath:     "/login",
		RedirectDelay: 2 * time.Second,
	}
}

func (r *ErrorRouter) HandleStatus(req *http.Request, resp *http.Response) {
	code := resp.StatusCode
	log.Printf("[transport] %s %s -> %d", req.Method, req.URL.Path, code)

	switch code {
	case http.StatusUnauthorized:
		r.toasts.Show("Økten din er utløpt. Du blir sendt til innlogging.", toast.Warning, toast.Options{Persistent: true})
		r.scheduleLogin()
	case http.StatusForbidden:
		r.toasts.Show("Denne funksjonen krever et høyere abonnement. Oppgrader for å få tilgang.", toast.Warning, toast.Options{})
	case http.StatusTooManyRequests:
		r.toasts.Show("For mange forespørsler. Vent litt før du prøver igjen.", toast.Warning, toast.Options{})
	case http.StatusInternalServerError:
		r.toasts.Show("Serverfeil. Prøv igjen om litt.", toast.Error,
			toast.Options{AllowRetry: true, Duration: 8 * time.Second})
	case http.StatusBadGateway:
		r.toasts.Show("Tjenesten er midlertidig utilgjengelig.", toast.Error,
			toast.Options{AllowRetry: true, Duration: 10 * time.Second})
	case http.StatusServiceUnavailable:
		r.toasts.Show("Tjenesten er under vedlikehold. Prøv igjen senere.", toast.Error,
			toast.Options{AllowRetry: true, Duration: 12 * time.Second})
	default:
		r.toasts.Show(fmt.Sprintf("Noe gikk galt (feilkode %d).", code), toast.Error, toast.Options{})
	}
}

// scheduleLogin redirects once, keeping the page the user was on as the
// return target.
func (r *ErrorRouter) scheduleLogin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.redirected || r.nav == nil {
		return
	}
	r.redirected = true
	target := r.LoginPath + "?next=" + url.QueryEscape(r.nav.Path())
	r.clock.AfterFunc(r.RedirectDelay, func() { r.nav.Navigate(target) })
}
