package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/aksjeradar/aksjeradar/internal/favorites"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

func favoriteButton(symbol string) *ui.Element {
	return ui.NewElement("favorite-"+symbol, map[string]string{
		ui.AttrRole:   ui.RoleFavoriteButton,
		ui.AttrSymbol: symbol,
	}, favorites.NotFavoritedMarkup)
}

type toggleCmd struct {
	conn connFlags
}

func (*toggleCmd) Name() string     { return "toggle" }
func (*toggleCmd) Synopsis() string { return "adds or removes a ticker from the watchlist" }
func (*toggleCmd) Usage() string {
	return `aksjeradar toggle <symbol>

Flips the favorite state of symbol and prints the server-confirmed result.
`
}

func (c *toggleCmd) SetFlags(f *flag.FlagSet) { c.conn.register(f, "/stocks") }

func (c *toggleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stdout, c.Usage())
		return subcommands.ExitUsageError
	}
	btn := favoriteButton(strings.ToUpper(f.Arg(0)))
	s, err := c.conn.session(btn)
	if err != nil {
		return failf("%v", err)
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return failf("%v", err)
	}
	if err := s.Favorites.Click(ctx, btn); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type checkCmd struct {
	conn connFlags
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "shows whether tickers are on the watchlist" }
func (*checkCmd) Usage() string {
	return `aksjeradar check <symbol...>
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) { c.conn.register(f, "/stocks") }

func (c *checkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(stdout, c.Usage())
		return subcommands.ExitUsageError
	}
	var buttons []*ui.Element
	for _, arg := range f.Args() {
		buttons = append(buttons, favoriteButton(strings.ToUpper(arg)))
	}
	s, err := c.conn.session(buttons...)
	if err != nil {
		return failf("%v", err)
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return failf("%v", err)
	}
	s.Favorites.Init(ctx)
	for _, b := range buttons {
		mark := "☆"
		if favorites.Favorited(b) {
			mark = "★"
		}
		fmt.Fprintf(stdout, "%s %s\n", mark, b.Symbol())
	}
	return subcommands.ExitSuccess
}
