package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

func run(t *testing.T, cmd subcommands.Command, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()
	var out bytes.Buffer
	old := stdout
	stdout = &out
	defer func() { stdout = old }()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd.Execute(context.Background(), fs), out.String()
}

func TestParseTicker(t *testing.T) {
	cases := map[string][2]string{
		"eqnr.ol":       {"oslo", "EQNR.OL"},
		"BTC-USD":       {"crypto", "BTC-USD"},
		"^OSEBX":        {"index", "^OSEBX"},
		"AAPL":          {"global", "AAPL"},
		"Global:nhy.ol": {"global", "NHY.OL"},
	}
	for in, want := range cases {
		if c, tk := parseTicker(in); c != want[0] || tk != want[1] {
			t.Errorf("parseTicker(%q) = %s, %s", in, c, tk)
		}
	}
}

func TestPrefsCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "prefs.yaml")
	if code, _ := run(t, &prefsCmd{}, "-file", file, "aksjeradar_language", "en"); code != subcommands.ExitSuccess {
		t.Fatalf("set exited %v", code)
	}
	code, out := run(t, &prefsCmd{}, "-file", file, "aksjeradar_language")
	if code != subcommands.ExitSuccess || strings.TrimSpace(out) != "en" {
		t.Errorf("get = %v %q", code, out)
	}
	if code, _ := run(t, &prefsCmd{}, "-file", file, "cookieConsent"); code != subcommands.ExitFailure {
		t.Errorf("missing key exited %v", code)
	}
}

func TestToggleAndCheckCommands(t *testing.T) {
	favorite := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.CSRFTokenResponse{Token: "t"})
	})
	mux.HandleFunc("/api/watchlist/toggle", func(w http.ResponseWriter, r *http.Request) {
		favorite = !favorite
		action := models.WatchlistRemoved
		if favorite {
			action = models.WatchlistAdded
		}
		json.NewEncoder(w).Encode(models.ToggleResponse{Success: true, Action: action})
	})
	mux.HandleFunc("/stocks/api/favorites/check/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.FavoriteStatus{Favorited: favorite})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv("AKSJERADAR_PREFS", filepath.Join(t.TempDir(), "prefs.yaml"))

	code, out := run(t, &toggleCmd{}, "-url", srv.URL, "eqnr.ol")
	if code != subcommands.ExitSuccess || !strings.Contains(out, "EQNR.OL lagt til i favoritter") {
		t.Errorf("toggle = %v %q", code, out)
	}
	code, out = run(t, &checkCmd{}, "-url", srv.URL, "EQNR.OL")
	if code != subcommands.ExitSuccess || strings.TrimSpace(out) != "★ EQNR.OL" {
		t.Errorf("check = %v %q", code, out)
	}
}

func TestAlertCommandValidatesLocally(t *testing.T) {
	t.Setenv("AKSJERADAR_PREFS", "")
	code, out := run(t, &alertCmd{}, "-url", "http://127.0.0.1:1", "-direction", "above", "EQNR.OL")
	if code != subcommands.ExitFailure || !strings.Contains(out, "Ugyldig input") {
		t.Errorf("alert = %v %q", code, out)
	}
}
