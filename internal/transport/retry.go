package transport

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aksjeradar/aksjeradar/internal/clock"
)

// RetryPolicy bounds the retry middleware.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Unit scales the backoff: the wait after failed attempt n is Unit*2^n.
	Unit  time.Duration
	Clock clock.Clock
}

// DefaultRetryPolicy makes 3 attempts waiting 2s then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Unit: time.Second, Clock: clock.Real()}
}

// BackOff returns the schedule of waits between attempts: 2*Unit, then
// doubling, without jitter, and Stop once Attempts-1 waits were handed out.
// Waiting itself goes through Clock.
func (p RetryPolicy) BackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * p.Unit
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithMaxRetries(b, uint64(retries))
	bo.Reset()
	return bo
}

// Retry retries requests whose round trip fails at the transport level.
// A completed response is returned as is whatever its status code, so a
// non-idempotent POST that reached the server is never sent twice because
// of an error status.
func Retry(p RetryPolicy) Middleware {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Clock == nil {
		p.Clock = clock.Real()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if flag(req.Context(), noRetryKey) {
				return next.RoundTrip(req)
			}
			ctx := req.Context()
			schedule := p.BackOff()
			for attempt := 1; ; attempt++ {
				r, err := rewind(req, attempt)
				if err != nil {
					return nil, err
				}
				resp, err := next.RoundTrip(r)
				if err == nil {
					return resp, nil
				}
				delay := schedule.NextBackOff()
				if delay == backoff.Stop || ctx.Err() != nil || !replayable(req) {
					return nil, &NetworkError{Method: req.Method, URL: req.URL.String(), Attempts: attempt, Err: err}
				}
				log.Printf("[transport] %s %s attempt %d/%d failed: %v (retrying in %v)",
					req.Method, req.URL.Path, attempt, p.Attempts, err, delay)
				if err := p.Clock.Sleep(ctx, delay); err != nil {
					return nil, &NetworkError{Method: req.Method, URL: req.URL.String(), Attempts: attempt, Err: err}
				}
			}
		})
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns the request to send for attempt, with a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	} else if req.Body != nil && req.Body != http.NoBody {
		return nil, errors.New("transport: request body cannot be replayed")
	}
	return r, nil
}
