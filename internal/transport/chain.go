// Package transport is the HTTP client middleware chain shared by every
// realtime service: error routing, bounded retry with exponential backoff,
// a GET response cache and CSRF/auth headers. The chain is built once per
// session; call sites opt out per request through the context.
package transport

import (
	"context"
	"net/http"
)

// Middleware wraps a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// Chain applies mws around base. The first middleware is the outermost.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

type optKey int

const (
	noRetryKey optKey = iota
	noCacheKey
	quietKey
)

// NoRetry disables the retry middleware for requests made with ctx.
func NoRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey, true)
}

// NoCache bypasses the response cache for requests made with ctx.
func NoCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey, true)
}

// Quiet disables status routing (and its toasts) for requests made with ctx.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey, true)
}

func flag(ctx context.Context, k optKey) bool {
	v, _ := ctx.Value(k).(bool)
	return v
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
