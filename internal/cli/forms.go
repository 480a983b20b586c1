package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/aksjeradar/aksjeradar/internal/actions"
)

type alertCmd struct {
	conn      connFlags
	price     string
	direction string
	current   string
}

func (*alertCmd) Name() string     { return "alert" }
func (*alertCmd) Synopsis() string { return "creates a price alert" }
func (*alertCmd) Usage() string {
	return `aksjeradar alert -price p [-direction above|below] [-current c] <symbol>

Creates a price alert. With -current the target must differ from the
current price by at least 1%.
`
}

func (c *alertCmd) SetFlags(f *flag.FlagSet) {
	c.conn.register(f, "/price-alerts")
	f.StringVar(&c.price, "price", "", "target price")
	f.StringVar(&c.direction, "direction", "above", "above or below")
	f.StringVar(&c.current, "current", "", "current price, enables the 1% distance check")
}

func (c *alertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	form := actions.AlertForm{Symbol: f.Arg(0), Price: c.price, Direction: c.direction}
	if c.current != "" {
		cur, err := decimal.NewFromString(c.current)
		if err != nil {
			return failf("invalid -current %q: %v", c.current, err)
		}
		form.CurrentPrice = cur
	}
	s, err := c.conn.session()
	if err != nil {
		return failf("%v", err)
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return failf("%v", err)
	}
	if _, err := s.Actions.CreateAlert(ctx, nil, form); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type positionCmd struct {
	conn      connFlags
	portfolio uint
	shares    string
	price     string
}

func (*positionCmd) Name() string     { return "position" }
func (*positionCmd) Synopsis() string { return "adds a position to a portfolio" }
func (*positionCmd) Usage() string {
	return `aksjeradar position [-portfolio id] -shares n -price p <ticker>
`
}

func (c *positionCmd) SetFlags(f *flag.FlagSet) {
	c.conn.register(f, "/portfolio")
	f.UintVar(&c.portfolio, "portfolio", 0, "portfolio id (0 uses the default portfolio)")
	f.StringVar(&c.shares, "shares", "", "number of shares")
	f.StringVar(&c.price, "price", "", "purchase price per share")
}

func (c *positionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := c.conn.session()
	if err != nil {
		return failf("%v", err)
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return failf("%v", err)
	}
	p, err := s.Actions.AddPosition(ctx, nil, actions.PositionForm{
		PortfolioID:   c.portfolio,
		Ticker:        f.Arg(0),
		Shares:        c.shares,
		PurchasePrice: c.price,
	})
	if err != nil {
		return subcommands.ExitFailure
	}
	if p != nil {
		fmt.Fprintf(stdout, "portefølje %d: %d posisjoner\n", p.ID, len(p.Positions))
	}
	return subcommands.ExitSuccess
}

type portfolioCmd struct {
	conn connFlags
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "creates an empty portfolio" }
func (*portfolioCmd) Usage() string {
	return `aksjeradar portfolio <name...>
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) { c.conn.register(f, "/portfolio") }

func (c *portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := c.conn.session()
	if err != nil {
		return failf("%v", err)
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return failf("%v", err)
	}
	p, err := s.Actions.CreatePortfolio(ctx, nil, strings.Join(f.Args(), " "))
	if err != nil {
		return subcommands.ExitFailure
	}
	if p != nil {
		fmt.Fprintf(stdout, "portefølje %d opprettet\n", p.ID)
	}
	return subcommands.ExitSuccess
}
