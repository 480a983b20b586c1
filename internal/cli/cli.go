// Package cli holds the aksjeradar subcommands. Each command drives a
// realtime session against a running server and renders toasts on stdout.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/realtime"
	"github.com/aksjeradar/aksjeradar/internal/toast"
	"github.com/aksjeradar/aksjeradar/internal/ui"
)

// Commands is the list of subcommands registered by cmd/aksjeradar.
var Commands = []subcommands.Command{
	&watchCmd{},
	&toggleCmd{},
	&checkCmd{},
	&alertCmd{},
	&positionCmd{},
	&portfolioCmd{},
	&prefsCmd{},
}

var stdout io.Writer = os.Stdout

// connFlags are shared by every command that talks to the server.
type connFlags struct {
	url   string
	token string
	path  string
}

func (c *connFlags) register(f *flag.FlagSet, page string) {
	f.StringVar(&c.url, "url", "", "server URL (default $AKSJERADAR_URL)")
	f.StringVar(&c.token, "token", "", "bearer token (default $AKSJERADAR_TOKEN)")
	f.StringVar(&c.path, "page", page, "page path used for toast filtering and login redirects")
}

func (c *connFlags) session(els ...*ui.Element) (*realtime.Session, error) {
	cfg := config.LoadClient()
	if c.url != "" {
		cfg.BaseURL = c.url
	}
	if c.token != "" {
		cfg.Token = c.token
	}
	doc := ui.NewDocument(c.path)
	doc.Add(els...)
	return realtime.NewSession(cfg, doc, &toast.WriterSink{W: stdout})
}

// parseTicker accepts "category:TICKER" or a bare ticker, which is
// assumed to trade on Oslo Børs when it ends in .OL and globally otherwise.
func parseTicker(s string) (category, ticker string) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return strings.ToLower(s[:i]), strings.ToUpper(s[i+1:])
	}
	ticker = strings.ToUpper(s)
	switch {
	case strings.HasSuffix(ticker, ".OL"):
		return models.CategoryOslo, ticker
	case strings.HasSuffix(ticker, "-USD"):
		return models.CategoryCrypto, ticker
	case strings.HasPrefix(ticker, "^"):
		return models.CategoryIndex, ticker
	}
	return models.CategoryGlobal, ticker
}

func failf(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
