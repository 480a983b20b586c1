package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

type recorder struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (r *recorder) Broadcast(msg models.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return true
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Quote{}, &models.PriceAlert{}); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}
	return db
}

func TestPeriodicTaskRunsImmediatelyAndStops(t *testing.T) {
	var runs int32
	task := NewPeriodicTask("test", time.Hour, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	task.Start()
	task.Start()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runs) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	task.Stop()
	task.Stop()
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestMarketSummaryJob(t *testing.T) {
	db := openDB(t)
	quotes := services.NewQuoteService(db, nil, time.Minute)
	ctx := context.Background()
	quotes.Upsert(ctx, models.Quote{Symbol: "^OSEBX", Category: models.CategoryIndex, Price: decimal.NewFromInt(1400)})

	hub := &recorder{}
	if err := MarketSummaryJob(quotes, hub)(ctx); err != nil {
		t.Fatal(err)
	}
	if len(hub.msgs) != 1 || hub.msgs[0].Type != models.MessageMarketSummary {
		t.Fatalf("msgs = %+v", hub.msgs)
	}
	if sum := hub.msgs[0].Content.(models.MarketSummary); len(sum.Indices) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestAlertCheckJobFiresOnce(t *testing.T) {
	db := openDB(t)
	quotes := services.NewQuoteService(db, nil, time.Minute)
	alerts := services.NewAlertService(db)
	ctx := context.Background()

	alerts.Create(1, models.AlertRequest{Symbol: "EQNR.OL", Price: "300", Direction: models.DirectionAbove})
	alerts.Create(1, models.AlertRequest{Symbol: "EQNR.OL", Price: "250", Direction: models.DirectionBelow})
	quotes.Upsert(ctx, models.Quote{Symbol: "EQNR.OL", Category: models.CategoryOslo, Price: decimal.NewFromInt(305)})

	hub := &recorder{}
	job := AlertCheckJob(quotes, alerts, hub)
	if err := job(ctx); err != nil {
		t.Fatal(err)
	}
	if err := job(ctx); err != nil {
		t.Fatal(err)
	}
	if len(hub.msgs) != 1 || hub.msgs[0].Type != models.MessageAlert {
		t.Fatalf("msgs = %+v", hub.msgs)
	}
	if a := hub.msgs[0].Content.(models.PriceAlert); a.Direction != models.DirectionAbove || a.Active {
		t.Errorf("alert = %+v", a)
	}
}
