// Package telemetry captures errors nothing else handled and reports them
// to the server's error log. Reporting is best effort: a failed report is
// logged locally and never surfaces to the user.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/toast"
	"github.com/aksjeradar/aksjeradar/internal/transport"
)

// Report kinds.
const (
	KindPanic     = "panic"
	KindUnhandled = "unhandled"
	KindError     = "error"
)

// GenericMessage replaces any error detail in front of the user.
const GenericMessage = "Det oppstod en uventet feil. Prøv igjen."

// Sender posts a report to the server.
type Sender interface {
	LogError(ctx context.Context, report models.ClientError) error
}

type Reporter struct {
	sender    Sender
	toasts    *toast.Presenter
	path      func() string
	UserAgent string
	Timeout   time.Duration

	wg sync.WaitGroup
}

// New returns a reporter. toasts may be nil, in which case nothing is
// shown to the user.
func New(sender Sender, toasts *toast.Presenter, path func() string) *Reporter {
	if path == nil {
		path = func() string { return "" }
	}
	return &Reporter{
		sender:    sender,
		toasts:    toasts,
		path:      path,
		UserAgent: "aksjeradar-go",
		Timeout:   5 * time.Second,
	}
}

// Report sends err to the error log without retrying or routing the
// response. It never fails.
func (r *Reporter) Report(ctx context.Context, kind string, err error) {
	if err == nil {
		return
	}
	r.send(ctx, models.ClientError{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: err.Error(),
		Source:  fmt.Sprintf("%T", err),
	})
}

func (r *Reporter) send(ctx context.Context, report models.ClientError) {
	if r.sender == nil {
		return
	}
	report.Path = r.path()
	report.UserAgent = r.UserAgent
	report.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(transport.Quiet(transport.NoRetry(ctx)), r.Timeout)
	defer cancel()
	if err := r.sender.LogError(ctx, report); err != nil {
		log.Printf("[telemetry] dropped %s report %s: %v", report.Kind, report.ID, err)
	}
}

// Recover must be deferred. It turns a panic into a report and a generic
// toast and lets the goroutine end normally.
func (r *Reporter) Recover() {
	v := recover()
	if v == nil {
		return
	}
	log.Printf("[telemetry] recovered panic: %v", v)
	r.send(context.Background(), models.ClientError{
		ID:      uuid.NewString(),
		Kind:    KindPanic,
		Message: fmt.Sprint(v),
		Stack:   string(debug.Stack()),
	})
	r.notify()
}

// Go runs fn in a goroutine. A panic or a returned error other than
// cancellation is reported.
func (r *Reporter) Go(ctx context.Context, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.Recover()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.Report(context.Background(), KindUnhandled, err)
			r.notify()
		}
	}()
}

// Wait blocks until every function started with Go has returned.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

func (r *Reporter) notify() {
	if r.toasts != nil {
		r.toasts.Error(GenericMessage)
	}
}
