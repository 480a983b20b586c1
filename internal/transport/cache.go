package transport

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aksjeradar/aksjeradar/internal/clock"
)

// cacheSize bounds the number of cached GET responses.
const cacheSize = 256

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// Cache keeps successful GET responses for a short TTL. Any successful
// mutating request empties it, and a GET that was already in flight when
// that happened is not stored, so a check issued after a toggle never
// sees the pre-toggle answer.
//
// Entries live in an expirable LRU. Expiry is also checked against the
// injected clock so timer tests stay deterministic.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries *expirable.LRU[string, cachedResponse]
	// purges counts Purge calls; a response fetched across one is stale.
	purges uint64
}

// NewCache returns a Cache with the given TTL.
func NewCache(ttl time.Duration, c clock.Clock) *Cache {
	if c == nil {
		c = clock.Real()
	}
	return &Cache{
		ttl:     ttl,
		clock:   c,
		entries: expirable.NewLRU[string, cachedResponse](cacheSize, nil, ttl),
	}
}

// Len reports the number of cached responses.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached response.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	c.entries.Purge()
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purges
}

// Middleware returns the caching RoundTripper wrapper.
func (c *Cache) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if flag(req.Context(), noCacheKey) || c.ttl <= 0 {
				return next.RoundTrip(req)
			}
			if req.Method != http.MethodGet {
				resp, err := next.RoundTrip(req)
				if err == nil && resp.StatusCode < 400 && isMutating(req.Method) {
					c.Purge()
				}
				return resp, err
			}

			key := req.URL.String()
			if resp, ok := c.get(key, req); ok {
				return resp, nil
			}
			gen := c.generation()
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusOK {
				return resp, err
			}
			if err := c.put(key, gen, resp); err != nil {
				log.Printf("[transport] cache write err (ignored): %v", err)
			}
			return resp, nil
		})
	}
}

func (c *Cache) get(key string, req *http.Request) (*http.Response, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expires) {
		c.entries.Remove(key)
		return nil, false
	}
	return &http.Response{
		Status:        http.StatusText(e.status),
		StatusCode:    e.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}, true
}

// put stores the body of resp and swaps in a readable copy. Nothing is
// stored when the cache was purged since gen was taken.
func (c *Cache) put(key string, gen uint64, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.purges != gen {
		return nil
	}
	c.entries.Add(key, cachedResponse{
		status:  resp.StatusCode,
		header:  resp.Header.Clone(),
		body:    body,
		expires: c.clock.Now().Add(c.ttl),
	})
	return nil
}
