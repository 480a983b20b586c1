package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

// QuoteCache keeps recently served quotes out of the database.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (models.Quote, bool, error)
	Set(ctx context.Context, q models.Quote, ttl time.Duration) error
	Delete(ctx context.Context, symbol string) error
}

// RedisQuoteCache stores quotes as JSON under quote:<symbol>.
type RedisQuoteCache struct {
	client *redis.Client
}

func NewRedisQuoteCache(client *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{client: client}
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (models.Quote, bool, error) {
	raw, err := c.client.Get(ctx, quoteKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Quote{}, false, nil
	}
	if err != nil {
		return models.Quote{}, false, err
	}
	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return models.Quote{}, false, err
	}
	return q, true, nil
}

func (c *RedisQuoteCache) Set(ctx context.Context, q models.Quote, ttl time.Duration) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quoteKey(q.Symbol), raw, ttl).Err()
}

func (c *RedisQuoteCache) Delete(ctx context.Context, symbol string) error {
	return c.client.Del(ctx, quoteKey(symbol)).Err()
}

// MemoryQuoteCache is used when Redis is unavailable.
type MemoryQuoteCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryQuote
}

type memoryQuote struct {
	quote   models.Quote
	expires time.Time
}

func NewMemoryQuoteCache() *MemoryQuoteCache {
	return &MemoryQuoteCache{now: time.Now, entries: make(map[string]memoryQuote)}
}

func (c *MemoryQuoteCache) Get(_ context.Context, symbol string) (models.Quote, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok || c.now().After(e.expires) {
		delete(c.entries, symbol)
		return models.Quote{}, false, nil
	}
	return e.quote, true, nil
}

func (c *MemoryQuoteCache) Set(_ context.Context, q models.Quote, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[q.Symbol] = memoryQuote{quote: q, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryQuoteCache) Delete(_ context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, symbol)
	return nil
}

// oslo is the exchange's time zone; it falls back to a fixed CET offset
// when tzdata is missing.
var oslo = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}()

// QuoteService serves prices from the quotes table through a cache.
type QuoteService struct {
	db    *gorm.DB
	cache QuoteCache
	ttl   time.Duration
	now   func() time.Time
}

func NewQuoteService(db *gorm.DB, cache QuoteCache, ttl time.Duration) *QuoteService {
	if cache == nil {
		cache = NewMemoryQuoteCache()
	}
	return &QuoteService{db: db, cache: cache, ttl: ttl, now: time.Now}
}

// Quote returns the latest quote for symbol. A symbol listed under a
// different category than the requested one is not found; an empty
// category matches every category.
func (s *QuoteService) Quote(ctx context.Context, symbol, category string) (models.Quote, error) {
	q, ok, err := s.cache.Get(ctx, symbol)
	if err != nil || !ok {
		err = s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&q).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quote{}, ErrNotFound
		}
		if err != nil {
			return models.Quote{}, err
		}
		s.cache.Set(ctx, q, s.ttl)
	}
	if category != "" && q.Category != category {
		return models.Quote{}, ErrNotFound
	}
	return q, nil
}

// Batch returns the known quotes among symbols. Unknown symbols are
// omitted. An empty category matches every category.
func (s *QuoteService) Batch(ctx context.Context, category string, symbols []string) (map[string]models.Quote, error) {
	out := make(map[string]models.Quote, len(symbols))
	var missing []string
	for _, sym := range symbols {
		if q, ok, err := s.cache.Get(ctx, sym); err == nil && ok && (category == "" || q.Category == category) {
			out[sym] = q
			continue
		}
		missing = append(missing, sym)
	}
	if len(missing) == 0 {
		return out, nil
	}

	query := s.db.WithContext(ctx).Where("symbol IN ?", missing)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var quotes []models.Quote
	if err := query.Find(&quotes).Error; err != nil {
		return nil, err
	}
	for _, q := range quotes {
		out[q.Symbol] = q
		s.cache.Set(ctx, q, s.ttl)
	}
	return out, nil
}

// MarketSummary returns the index quotes and whether Oslo Børs is open.
func (s *QuoteService) MarketSummary(ctx context.Context) (models.MarketSummary, error) {
	var indices []models.Quote
	err := s.db.WithContext(ctx).Where("category = ?", models.CategoryIndex).Order("symbol").Find(&indices).Error
	if err != nil {
		return models.MarketSummary{}, err
	}
	now := s.now()
	return models.MarketSummary{Indices: indices, MarketOpen: MarketOpen(now), UpdatedAt: now}, nil
}

// Upsert stores q and evicts it from the cache.
func (s *QuoteService) Upsert(ctx context.Context, q models.Quote) error {
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Save(&q).Error; err != nil {
		return err
	}
	return s.cache.Delete(ctx, q.Symbol)
}

// MarketOpen reports whether Oslo Børs trades at t (weekdays 09:00-16:20).
func MarketOpen(t time.Time) bool {
	t = t.In(oslo)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60 && minutes < 16*60+20
}
