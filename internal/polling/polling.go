// Package polling keeps price widgets fresh without a persistent
// connection. One ticker re-fetches the market summary and, per market
// category, one batch of subscribed tickers; results fan out to every
// callback registered for a ticker.
package polling

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aksjeradar/aksjeradar/internal/clock"
	"github.com/aksjeradar/aksjeradar/internal/models"
)

// DefaultInterval is the polling period.
const DefaultInterval = 30 * time.Second

const marketKey = "@market"

// Source is the price API the service polls.
type Source interface {
	MarketSummary(ctx context.Context) (models.MarketSummary, error)
	BatchPrices(ctx context.Context, category string, tickers []string) (map[string]models.Quote, error)
	Price(ctx context.Context, ticker, category string) (models.Quote, error)
}

// QuoteFunc receives price updates for one ticker.
type QuoteFunc func(models.Quote)

// SummaryFunc receives market summary updates.
type SummaryFunc func(models.MarketSummary)

// Recoverer is deferred around every subscriber callback.
type Recoverer interface {
	Recover()
}

type logRecoverer struct{}

func (logRecoverer) Recover() {
	if v := recover(); v != nil {
		log.Printf("[polling] recovered panic in subscriber: %v", v)
	}
}

// Subscription is the handle returned by the Subscribe methods.
type Subscription struct {
	key      string
	ticker   string
	category string
	onQuote  QuoteFunc
	onMarket SummaryFunc
}

// Key returns "category:ticker", or the market key for summary listeners.
func (s *Subscription) Key() string { return s.key }

// Key builds the subscription key of a ticker.
func Key(category, ticker string) string { return category + ":" + ticker }

// Service is the polling service. The zero value is not usable; call New.
type Service struct {
	src       Source
	clock     clock.Clock
	interval  time.Duration
	recoverer Recoverer

	lifetime context.Context
	close    context.CancelFunc

	mu      sync.Mutex
	subs    map[string][]*Subscription
	applied map[string]uint64
	running bool
	cancel  context.CancelFunc
	ticker  clock.Ticker

	// deliverMu keeps the staleness check and the callbacks of one
	// delivery together so callbacks observe sequences in order.
	deliverMu sync.Mutex
	seq       uint64
	fetches   sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

func WithInterval(d time.Duration) Option { return func(s *Service) { s.interval = d } }
func WithClock(c clock.Clock) Option      { return func(s *Service) { s.clock = c } }

// WithRecoverer replaces the default recoverer, which only logs. A
// panicking callback never stops delivery to the others.
func WithRecoverer(r Recoverer) Option { return func(s *Service) { s.recoverer = r } }

// New creates a stopped polling service reading from src.
func New(src Source, opts ...Option) *Service {
	s := &Service{
		src:       src,
		clock:     clock.Real(),
		interval:  DefaultInterval,
		recoverer: logRecoverer{},
		subs:      make(map[string][]*Subscription),
		applied:   make(map[string]uint64),
	}
	for _, o := range opts {
		o(s)
	}
	s.lifetime, s.close = context.WithCancel(context.Background())
	return s
}

// Start fetches the market summary immediately and then polls every
// interval. Calling Start on a running service does nothing.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.lifetime.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.lifetime)
	s.running = true
	s.cancel = cancel
	s.ticker = s.clock.NewTicker(s.interval)
	go s.loop(ctx, s.ticker)
	log.Printf("[polling] started (interval %v)", s.interval)
}

// Stop halts the ticker. In-flight requests are cancelled. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	s.cancel()
	log.Println("[polling] stopped")
}

// Running reports whether the ticker is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Close stops the service for good and cancels subscription fetches.
func (s *Service) Close() {
	s.Stop()
	s.close()
	s.fetches.Wait()
}

func (s *Service) loop(ctx context.Context, t clock.Ticker) {
	s.fetchMarket(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.tick(ctx)
		}
	}
}

// tick refreshes the market summary and issues one batch request per
// category. A failing category is logged and skipped until the next tick.
func (s *Service) tick(ctx context.Context) {
	s.fetchMarket(ctx)

	var g errgroup.Group
	for category, tickers := range s.batches() {
		category, tickers := category, tickers
		g.Go(func() error {
			s.fetchBatch(ctx, category, tickers)
			return nil
		})
	}
	g.Wait()
}

// batches groups subscribed tickers by category.
func (s *Service) batches() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string)
	for key, list := range s.subs {
		if key == marketKey || len(list) == 0 {
			continue
		}
		out[list[0].category] = append(out[list[0].category], list[0].ticker)
	}
	for _, tickers := range out {
		sort.Strings(tickers)
	}
	return out
}

func (s *Service) nextSeq() uint64 { return atomic.AddUint64(&s.seq, 1) }

func (s *Service) fetchMarket(ctx context.Context) {
	seq := s.nextSeq()
	summary, err := s.src.MarketSummary(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[polling] market summary: %v", err)
		}
		return
	}
	s.deliver(marketKey, seq, func(sub *Subscription) {
		if sub.onMarket != nil {
			sub.onMarket(summary)
		}
	})
}

func (s *Service) fetchBatch(ctx context.Context, category string, tickers []string) {
	seq := s.nextSeq()
	prices, err := s.src.BatchPrices(ctx, category, tickers)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[polling] batch %s (%d tickers): %v", category, len(tickers), err)
		}
		return
	}
	for _, ticker := range tickers {
		q, ok := prices[ticker]
		if !ok {
			continue
		}
		s.deliver(Key(category, ticker), seq, func(sub *Subscription) { sub.onQuote(q) })
	}
}

func (s *Service) fetchSingle(ctx context.Context, ticker, category string) {
	defer s.fetches.Done()
	seq := s.nextSeq()
	q, err := s.src.Price(ctx, ticker, category)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[polling] price %s: %v", Key(category, ticker), err)
		}
		return
	}
	s.deliver(Key(category, ticker), seq, func(sub *Subscription) { sub.onQuote(q) })
}

// deliver hands a response tagged seq to every subscriber of key unless
// a newer response was already applied.
func (s *Service) deliver(key string, seq uint64, apply func(*Subscription)) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	list := s.subs[key]
	if len(list) == 0 {
		s.mu.Unlock()
		return
	}
	if seq <= s.applied[key] {
		s.mu.Unlock()
		log.Printf("[polling] dropped stale response for %s (seq %d)", key, seq)
		return
	}
	s.applied[key] = seq
	subs := append([]*Subscription(nil), list...)
	s.mu.Unlock()

	for _, sub := range subs {
		s.call(apply, sub)
	}
}

func (s *Service) call(apply func(*Subscription), sub *Subscription) {
	defer s.recoverer.Recover()
	apply(sub)
}

// SubscribeTicker registers cb for ticker in category and fetches its
// price once right away. Several callbacks may share a ticker.
func (s *Service) SubscribeTicker(ticker, category string, cb QuoteFunc) *Subscription {
	sub := &Subscription{key: Key(category, ticker), ticker: ticker, category: category, onQuote: cb}
	s.add(sub)
	s.fetches.Add(1)
	go s.fetchSingle(s.lifetime, ticker, category)
	return sub
}

// SubscribeMarket registers cb for market summary updates.
func (s *Service) SubscribeMarket(cb SummaryFunc) *Subscription {
	sub := &Subscription{key: marketKey, onMarket: cb}
	s.add(sub)
	return sub
}

func (s *Service) add(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.key] = append(s.subs[sub.key], sub)
}

// Unsubscribe removes exactly sub. The key disappears once its last
// callback is gone. It reports whether sub was registered.
func (s *Service) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subs[sub.key]
	for i, cur := range list {
		if cur != sub {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(s.subs, sub.key)
			delete(s.applied, sub.key)
		} else {
			s.subs[sub.key] = list
		}
		return true
	}
	return false
}

// Keys returns the subscribed keys in sorted order.
func (s *Service) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribers reports how many callbacks are registered under key.
func (s *Service) Subscribers(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[key])
}
