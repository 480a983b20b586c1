package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/prefs"
)

type prefsCmd struct {
	file string
}

func (*prefsCmd) Name() string     { return "prefs" }
func (*prefsCmd) Synopsis() string { return "reads or writes local preferences" }
func (*prefsCmd) Usage() string {
	return `aksjeradar prefs [key [value]]

Without arguments, lists every stored preference. With a key, prints its
value. With a key and a value, stores it. Preferences never leave this
machine.
`
}

func (c *prefsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "preferences file (default $AKSJERADAR_PREFS)")
}

func (c *prefsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := c.file
	if path == "" {
		path = config.LoadClient().PrefsPath
	}
	store, err := prefs.Open(path)
	if err != nil {
		return failf("%v", err)
	}

	switch f.NArg() {
	case 0:
		for _, k := range store.Keys() {
			v, _ := store.Get(k)
			fmt.Fprintf(stdout, "%s=%s\n", k, v)
		}
	case 1:
		v, ok := store.Get(f.Arg(0))
		if !ok {
			return failf("%s is not set", f.Arg(0))
		}
		fmt.Fprintln(stdout, v)
	case 2:
		if err := store.Set(f.Arg(0), f.Arg(1)); err != nil {
			return failf("%v", err)
		}
	default:
		fmt.Fprint(stdout, c.Usage())
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
