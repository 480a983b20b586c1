// Package actions handles the price alert and portfolio forms. Input is
// validated before any request is made; the submit button shows a
// spinner for exactly one round trip and is always restored.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/toast"
	"github.com/aksjeradar/aksjeradar/internal/transport"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

// InvalidInputMessage is shown when a form fails client-side validation.
const InvalidInputMessage = "Ugyldig input"

const (
	tooCloseMessage       = "Målprisen må avvike minst 1 % fra nåværende kurs."
	alertFailedMessage    = "Kunne ikke opprette prisvarsel. Prøv igjen."
	positionFailedMessage = "Kunne ikke legge til posisjon. Prøv igjen."
	portfolioFailed       = "Kunne ikke opprette portefølje. Prøv igjen."
)

var (
	ErrInvalidInput   = errors.New("actions: invalid input")
	ErrTargetTooClose = errors.New("actions: target price within 1% of current price")
	ErrBusy           = errors.New("actions: submit already in progress")
)

// minDistance is the smallest relative gap between target and current price.
var minDistance = decimal.NewFromFloat(0.01)

// API is the subset of endpoints the forms submit to.
type API interface {
	CreateAlert(ctx context.Context, req models.AlertRequest) (models.AlertResponse, error)
	AddPosition(ctx context.Context, req models.PositionRequest) (models.PortfolioResponse, error)
	CreatePortfolio(ctx context.Context, name string) (models.PortfolioResponse, error)
}

// AlertForm is the price alert form as entered.
type AlertForm struct {
	Symbol    string
	Price     string
	Direction string
	// CurrentPrice enables the 1% distance check when set.
	CurrentPrice decimal.Decimal
}

// PositionForm is the add-position form. PortfolioID zero targets the
// default portfolio.
type PositionForm struct {
	PortfolioID   uint
	Ticker        string
	Shares        string
	PurchasePrice string
}

// Tracker registers a submission so navigation can abort it.
type Tracker interface {
	Track(ctx context.Context) (context.Context, func())
}

type Actions struct {
	api     API
	toasts  *toast.Presenter
	tracker Tracker
}

func New(api API, toasts *toast.Presenter) *Actions {
	return &Actions{api: api, toasts: toasts}
}

// WithTracker registers every submission with t and returns a.
func (a *Actions) WithTracker(t Tracker) *Actions {
	a.tracker = t
	return a
}

func (a *Actions) track(ctx context.Context) (context.Context, func()) {
	if a.tracker == nil {
		return ctx, func() {}
	}
	return a.tracker.Track(ctx)
}

// CreateAlert validates f and posts it. Missing or malformed fields are
// rejected without a request.
func (a *Actions) CreateAlert(ctx context.Context, btn *ui.Element, f AlertForm) (*models.PriceAlert, error) {
	symbol := strings.ToUpper(strings.TrimSpace(f.Symbol))
	direction := strings.ToLower(strings.TrimSpace(f.Direction))
	target, ok := positive(f.Price)
	if symbol == "" || !ok || (direction != models.DirectionAbove && direction != models.DirectionBelow) {
		a.toasts.Error(InvalidInputMessage)
		return nil, ErrInvalidInput
	}
	if f.CurrentPrice.IsPositive() {
		gap := target.Sub(f.CurrentPrice).Abs().Div(f.CurrentPrice)
		if gap.LessThan(minDistance) {
			a.toasts.Warning(tooCloseMessage)
			return nil, ErrTargetTooClose
		}
	}

	release, err := begin(btn)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, done := a.track(ctx)
	defer done()

	resp, err := a.api.CreateAlert(ctx, models.AlertRequest{
		Symbol:    symbol,
		Price:     target.String(),
		Direction: direction,
	})
	if err == nil && !resp.Success {
		err = rejected(resp.Error)
	}
	if err != nil {
		a.notify(ctx, "create alert "+symbol, err, alertFailedMessage)
		return nil, err
	}

	verb := "over"
	if direction == models.DirectionBelow {
		verb = "under"
	}
	a.toasts.Success(fmt.Sprintf("Prisvarsel opprettet: %s %s %s", symbol, verb, target.StringFixed(2)))
	return resp.Alert, nil
}

// AddPosition validates f and adds the holding.
func (a *Actions) AddPosition(ctx context.Context, btn *ui.Element, f PositionForm) (*models.Portfolio, error) {
	ticker := strings.ToUpper(strings.TrimSpace(f.Ticker))
	shares, okShares := positive(f.Shares)
	price, okPrice := positive(f.PurchasePrice)
	if ticker == "" || !okShares || !okPrice {
		a.toasts.Error(InvalidInputMessage)
		return nil, ErrInvalidInput
	}

	release, err := begin(btn)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, done := a.track(ctx)
	defer done()

	resp, err := a.api.AddPosition(ctx, models.PositionRequest{
		PortfolioID:   f.PortfolioID,
		Ticker:        ticker,
		Shares:        shares.String(),
		PurchasePrice: price.String(),
	})
	if err == nil && !resp.Success {
		err = rejected(resp.Error)
	}
	if err != nil {
		a.notify(ctx, "add position "+ticker, err, positionFailedMessage)
		return nil, err
	}
	a.toasts.Success(fmt.Sprintf("%s lagt til i porteføljen", ticker))
	return resp.Portfolio, nil
}

// CreatePortfolio creates an empty portfolio called name.
func (a *Actions) CreatePortfolio(ctx context.Context, btn *ui.Element, name string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		a.toasts.Error(InvalidInputMessage)
		return nil, ErrInvalidInput
	}

	release, err := begin(btn)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, done := a.track(ctx)
	defer done()

	resp, err := a.api.CreatePortfolio(ctx, name)
	if err == nil && !resp.Success {
		err = rejected(resp.Error)
	}
	if err != nil {
		a.notify(ctx, "create portfolio", err, portfolioFailed)
		return nil, err
	}
	a.toasts.Success(fmt.Sprintf("Porteføljen %q er opprettet", name))
	return resp.Portfolio, nil
}

func positive(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// begin puts btn in its loading state. A nil btn is allowed.
func begin(btn *ui.Element) (func(), error) {
	if btn == nil {
		return func() {}, nil
	}
	if !ui.BeginLoading(btn) {
		return nil, ErrBusy
	}
	return func() { ui.EndLoading(btn) }, nil
}

type rejectedError string

func (e rejectedError) Error() string { return "actions: rejected: " + string(e) }

func rejected(msg string) error { return rejectedError(msg) }

func (a *Actions) notify(ctx context.Context, op string, err error, fallback string) {
	log.Printf("[actions] %s failed: %v", op, err)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || transport.WasRouted(err) {
		return
	}
	var rej rejectedError
	var status *transport.StatusError
	switch {
	case transport.IsNetworkError(err):
		a.toasts.Error(transport.NetworkErrorMessage)
	case errors.As(err, &rej) && rej != "":
		a.toasts.Error(string(rej))
	case errors.As(err, &status) && status.StatusCode == 400:
		msg := status.Message
		if msg == "" {
			msg = InvalidInputMessage
		}
		a.toasts.Error(msg)
	default:
		a.toasts.Error(fallback)
	}
}
