package tasks

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

// Broadcaster delivers a message to connected clients
type Broadcaster interface {
	Broadcast(msg models.Message) bool
}

// Manager handles the execution of scheduled tasks
type Manager struct {
	tasks []Task
}

// Task represents a scheduled task that needs to be executed
type Task interface {
	Start()
	Stop()
}

// NewManager creates a manager running the market summary broadcast and
// the alert check every interval
func NewManager(quotes *services.QuoteService, alerts *services.AlertService, hub Broadcaster, interval time.Duration) *Manager {
	m := &Manager{}
	m.RegisterTask(NewPeriodicTask("market-summary", interval, MarketSummaryJob(quotes, hub)))
	m.RegisterTask(NewPeriodicTask("alert-check", interval, AlertCheckJob(quotes, alerts, hub)))
	return m
}

// RegisterTask registers a task with the manager
func (m *Manager) RegisterTask(task Task) {
	m.tasks = append(m.tasks, task)
}

// StartScheduledTasks starts all registered tasks
func (m *Manager) StartScheduledTasks() {
	for _, task := range m.tasks {
		task.Start()
	}
	log.Println("[tasks] started all scheduled tasks")
}

// StopAllTasks stops all running tasks
func (m *Manager) StopAllTasks() {
	for _, task := range m.tasks {
		task.Stop()
	}
	log.Println("[tasks] stopped all scheduled tasks")
}

// PeriodicTask runs a job immediately on Start and then every interval.
type PeriodicTask struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPeriodicTask(name string, interval time.Duration, job func(ctx context.Context) error) *PeriodicTask {
	return &PeriodicTask{name: name, interval: interval, job: job}
}

// Start begins the task. Starting a running task does nothing.
func (t *PeriodicTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			t.run(ctx)
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}(t.done)
	log.Printf("[tasks] %s started (every %s)", t.name, t.interval)
}

func (t *PeriodicTask) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.interval)
	defer cancel()
	if err := t.job(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[tasks] %s: %v", t.name, err)
	}
}

// Stop terminates the task and waits for a running job to return
func (t *PeriodicTask) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("[tasks] %s stopped", t.name)
}

// MarketSummaryJob pushes the market summary to websocket clients
func MarketSummaryJob(quotes *services.QuoteService, hub Broadcaster) func(context.Context) error {
	return func(ctx context.Context) error {
		summary, err := quotes.MarketSummary(ctx)
		if err != nil {
			return err
		}
		hub.Broadcast(models.Message{Type: models.MessageMarketSummary, Content: summary})
		return nil
	}
}

// AlertCheckJob fires alerts whose target has been crossed. A fired alert
// is deactivated and announced once.
func AlertCheckJob(quotes *services.QuoteService, alerts *services.AlertService, hub Broadcaster) func(context.Context) error {
	return func(ctx context.Context) error {
		symbols, err := alerts.ActiveSymbols()
		if err != nil || len(symbols) == 0 {
			return err
		}
		prices, err := quotes.Batch(ctx, "", symbols)
		if err != nil {
			return err
		}
		for _, sym := range symbols {
			q, ok := prices[sym]
			if !ok {
				continue
			}
			hit, err := alerts.Triggered(q)
			if err != nil {
				return err
			}
			for _, a := range hit {
				if err := alerts.Deactivate(a.ID); err != nil {
					return err
				}
				a.Active = false
				hub.Broadcast(models.Message{Type: models.MessageAlert, Content: a})
			}
		}
		return nil
	}
}
