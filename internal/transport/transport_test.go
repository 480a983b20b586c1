package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aksjeradar/aksjeradar/internal/clock"
	"github.com/aksjeradar/aksjeradar/internal/toast"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

var errDial = errors.New("dial tcp: connection refused")

func failing(calls *int32) http.RoundTripper {
	return RoundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(calls, 1)
		return nil, errDial
	})
}

func respond(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestRetryStopsAfterThreeAttempts(t *testing.T) {
	clk := clock.NewFake()
	var calls int32
	rt := Chain(failing(&calls), Retry(RetryPolicy{Attempts: 3, Unit: time.Second, Clock: clk}))

	done := make(chan error, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodGet, "http://aksjeradar.test/api/realtime/market-summary", nil)
		_, err := rt.RoundTrip(req)
		done <- err
	}()

	for _, step := range []time.Duration{2 * time.Second, 4 * time.Second} {
		if !clk.WaitForPending(1, time.Second) {
			t.Fatal("retry did not schedule a backoff")
		}
		clk.Advance(step)
	}

	select {
	case err := <-done:
		var ne *NetworkError
		if !errors.As(err, &ne) || ne.Attempts != 3 {
			t.Fatalf("err = %v, want NetworkError after 3 attempts", err)
		}
		if !IsNetworkError(err) {
			t.Error("IsNetworkError should be true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not finish")
	}
	if calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
	sleeps := clk.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 4*time.Second {
		t.Errorf("backoff sleeps = %v, want [2s 4s]", sleeps)
	}
}

func TestRetryNeverRepeatsCompletedResponse(t *testing.T) {
	for _, code := range []int{400, 401, 429, 500, 503} {
		var calls int32
		base := RoundTripFunc(func(*http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return respond(code, `{"error":"x"}`), nil
		})
		rt := Chain(base, Retry(RetryPolicy{Attempts: 3, Unit: time.Second, Clock: clock.NewFake()}))
		req, _ := http.NewRequest(http.MethodPost, "http://aksjeradar.test/price-alerts/create", strings.NewReader(`{}`))
		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatalf("%d: unexpected error %v", code, err)
		}
		if resp.StatusCode != code || calls != 1 {
			t.Errorf("%d: status=%d calls=%d", code, resp.StatusCode, calls)
		}
	}
}

func TestRetryReplaysBody(t *testing.T) {
	clk := clock.NewFake()
	var mu sync.Mutex
	var bodies []string
	var calls int32
	base := RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errDial
		}
		return respond(200, `{"success":true}`), nil
	})
	rt := Chain(base, Retry(RetryPolicy{Attempts: 3, Unit: time.Second, Clock: clk}))

	done := make(chan *http.Response, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, "http://aksjeradar.test/api/watchlist/toggle", strings.NewReader(`{"symbol":"EQNR.OL"}`))
		resp, _ := rt.RoundTrip(req)
		done <- resp
	}()
	clk.WaitForPending(1, time.Second)
	clk.Advance(2 * time.Second)

	resp := <-done
	if resp == nil || resp.StatusCode != 200 {
		t.Fatalf("resp = %v", resp)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 || bodies[0] != bodies[1] || bodies[1] != `{"symbol":"EQNR.OL"}` {
		t.Errorf("bodies = %q", bodies)
	}
}

func TestNoRetryOptOut(t *testing.T) {
	var calls int32
	rt := Chain(failing(&calls), Retry(RetryPolicy{Attempts: 3, Unit: time.Second, Clock: clock.NewFake()}))
	req, _ := http.NewRequestWithContext(NoRetry(context.Background()), http.MethodPost, "http://aksjeradar.test/api/log-error", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func newRouter(path string) (*ErrorRouter, *toast.Recorder, *ui.Document, *clock.Fake) {
	rec := &toast.Recorder{}
	doc := ui.NewDocument(path)
	clk := clock.NewFake()
	p := toast.NewPresenter(rec, toast.Filter{}, doc.Path)
	return NewErrorRouter(p, doc, clk), rec, doc, clk
}

func TestRoutingUnauthorizedRedirectsToLogin(t *testing.T) {
	router, rec, doc, clk := newRouter("/portfolio/3")
	base := RoundTripFunc(func(*http.Request) (*http.Response, error) { return respond(401, ""), nil })
	rt := Chain(base, Routing(router))

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://aksjeradar.test/api/watchlist", nil)
		resp, err := rt.RoundTrip(req)
		if err != nil || resp.Header.Get(RoutedHeader) != "1" {
			t.Fatalf("resp=%v err=%v", resp, err)
		}
	}

	last, _ := rec.Last()
	if !last.Persistent || last.Type != toast.Warning {
		t.Errorf("401 toast = %+v", last)
	}
	if len(doc.History()) != 0 {
		t.Fatal("redirect must be delayed")
	}
	clk.Advance(2 * time.Second)
	hist := doc.History()
	if len(hist) != 1 || hist[0] != "/login?next=%2Fportfolio%2F3" {
		t.Errorf("history = %v", hist)
	}
}

func TestRoutingStatusToasts(t *testing.T) {
	cases := []struct {
		code  int
		typ   toast.Type
		retry bool
		text  string
	}{
		{403, toast.Warning, false, "abonnement"},
		{429, toast.Warning, false, "Vent litt"},
		{500, toast.Error, true, "Serverfeil"},
		{502, toast.Error, true, "utilgjengelig"},
		{503, toast.Error, true, "vedlikehold"},
		{418, toast.Error, false, "418"},
	}
	for _, tc := range cases {
		router, rec, doc, _ := newRouter("/stocks")
		base := RoundTripFunc(func(*http.Request) (*http.Response, error) { return respond(tc.code, ""), nil })
		rt := Chain(base, Routing(router))
		req, _ := http.NewRequest(http.MethodGet, "http://aksjeradar.test/x", nil)
		rt.RoundTrip(req)

		got, ok := rec.Last()
		if !ok {
			t.Fatalf("%d: no toast", tc.code)
		}
		if got.Type != tc.typ || got.Retry != tc.retry || !strings.Contains(got.Message, tc.text) {
			t.Errorf("%d: toast = %+v", tc.code, got)
		}
		if len(doc.History()) != 0 {
			t.Errorf("%d: unexpected redirect", tc.code)
		}
	}
}

func TestRoutingQuietAndSuccess(t *testing.T) {
	router, rec, _, _ := newRouter("/")
	code := 500
	base := RoundTripFunc(func(*http.Request) (*http.Response, error) { return respond(code, ""), nil })
	rt := Chain(base, Routing(router))

	req, _ := http.NewRequestWithContext(Quiet(context.Background()), http.MethodPost, "http://aksjeradar.test/api/log-error", nil)
	rt.RoundTrip(req)
	code = 200
	req, _ = http.NewRequest(http.MethodGet, "http://aksjeradar.test/", nil)
	rt.RoundTrip(req)

	if n := len(rec.Toasts()); n != 0 {
		t.Errorf("got %d toasts, want none", n)
	}
}

func TestCacheServesGetsAndPurgesOnMutation(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"n":`+string(rune('0'+n))+`}`)
	}))
	defer srv.Close()

	clk := clock.NewFake()
	cache := NewCache(time.Minute, clk)
	client := &http.Client{Transport: Chain(http.DefaultTransport, cache.Middleware())}

	get := func(ctx context.Context) string {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stocks/api/favorites/check/EQNR.OL", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return string(b)
	}

	first := get(context.Background())
	if second := get(context.Background()); second != first {
		t.Errorf("cached GET = %q, want %q", second, first)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("server hits = %d, want 1", n)
	}
	if bypass := get(NoCache(context.Background())); bypass == first {
		t.Error("NoCache should reach the server")
	}

	resp, err := client.Post(srv.URL+"/api/watchlist/toggle", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if cache.Len() != 0 {
		t.Errorf("cache not purged after POST, len=%d", cache.Len())
	}

	get(context.Background())
	before := atomic.LoadInt32(&hits)
	clk.Advance(2 * time.Minute)
	get(context.Background())
	if atomic.LoadInt32(&hits) != before+1 {
		t.Error("expired entry should be refetched")
	}
}

func TestGetInFlightAcrossMutationIsNotCached(t *testing.T) {
	var mu sync.Mutex
	favorited := false
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	var gets int32
	base := RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPost {
			mu.Lock()
			favorited = !favorited
			mu.Unlock()
			return respond(200, `{"success":true}`), nil
		}
		mu.Lock()
		body := `{"favorited":false}`
		if favorited {
			body = `{"favorited":true}`
		}
		mu.Unlock()
		if atomic.AddInt32(&gets, 1) == 1 {
			started <- struct{}{}
			<-gate
		}
		return respond(200, body), nil
	})
	cache := NewCache(time.Minute, clock.NewFake())
	rt := Chain(base, cache.Middleware())

	get := func() string {
		req, _ := http.NewRequest(http.MethodGet, "http://aksjeradar.test/stocks/api/favorites/check/EQNR.OL", nil)
		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return string(b)
	}

	slow := make(chan string, 1)
	go func() { slow <- get() }()
	<-started

	req, _ := http.NewRequest(http.MethodPost, "http://aksjeradar.test/api/watchlist/toggle", strings.NewReader(`{}`))
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatal(err)
	}
	close(gate)
	if old := <-slow; old != `{"favorited":false}` {
		t.Fatalf("slow GET = %q", old)
	}

	if got := get(); got != `{"favorited":true}` {
		t.Errorf("GET after toggle = %q, want the post-toggle answer", got)
	}
}

func TestCSRFOnlyOnMutatingRequests(t *testing.T) {
	var seen = map[string]string{}
	base := RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen[req.Method] = req.Header.Get(CSRFHeader)
		return respond(200, ""), nil
	})
	rt := Chain(base, CSRF(func() string { return "tok123" }), Bearer(func() string { return "jwt" }))

	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		req, _ := http.NewRequest(m, "http://aksjeradar.test/", nil)
		rt.RoundTrip(req)
		if req.Header.Get(CSRFHeader) != "" {
			t.Errorf("%s: caller's request was mutated", m)
		}
	}
	if seen[http.MethodGet] != "" || seen[http.MethodPost] != "tok123" || seen[http.MethodDelete] != "tok123" {
		t.Errorf("csrf headers = %v", seen)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(time.Minute, clock.NewFake())
	rt := Chain(RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{}`)),
			Request:    req,
		}, nil
	}), cache.Middleware())

	for i := 0; i < cacheSize+10; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://aksjeradar.test/api/realtime/price/T"+strconv.Itoa(i), nil)
		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatal(err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	if n := cache.Len(); n != cacheSize {
		t.Errorf("cache holds %d entries, want %d", n, cacheSize)
	}
}
