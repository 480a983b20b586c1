package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

type watchCmd struct {
	conn     connFlags
	duration time.Duration
	market   bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "streams prices for tickers by polling" }
func (*watchCmd) Usage() string {
	return `aksjeradar watch [-duration d] [-market] <ticker...>

Subscribes to each ticker and prints every price update until interrupted
or until -duration has elapsed. A ticker may carry its category as
"oslo:EQNR.OL"; otherwise the category is derived from the symbol.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.conn.register(f, "/")
	f.DurationVar(&c.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	f.BoolVar(&c.market, "market", true, "also print market summary updates")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 && !c.market {
		fmt.Fprint(stdout, c.Usage())
		return subcommands.ExitUsageError
	}
	s, err := c.conn.session()
	if err != nil {
		return failf("%v", err)
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return failf("%v", err)
	}

	for _, arg := range f.Args() {
		category, ticker := parseTicker(arg)
		s.Polling.SubscribeTicker(ticker, category, func(q models.Quote) {
			fmt.Fprintf(stdout, "%s %-10s %10s %7s%%\n", q.UpdatedAt.Format("15:04:05"), q.Symbol, q.Price.StringFixed(2), q.ChangePercent.StringFixed(2))
		})
	}
	if c.market {
		s.Polling.SubscribeMarket(func(m models.MarketSummary) {
			state := "stengt"
			if m.MarketOpen {
				state = "åpent"
			}
			fmt.Fprintf(stdout, "marked %s, %d indekser\n", state, len(m.Indices))
		})
	}
	s.Polling.Start()

	if c.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.duration)
		defer cancel()
	}
	<-ctx.Done()
	return subcommands.ExitSuccess
}
