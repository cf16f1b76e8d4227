package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/prospector/internal/config"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/internal/storage/csvbackend"
)

// chdir moves into a fresh temp dir so no prospector.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	if err != nil {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return stdout.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"run", "queries", "history", "report"} {
		if !names[name] {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestRunCommand_Flags(t *testing.T) {
	root := newRootCmd()
	runCmd, _, err := root.Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"api-key", "niche", "limit", "delay", "exclude", "include", "only-com-org", "output", "format", "store", "dsn", "metrics-port"} {
		f := runCmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("run command should have --%s", name)
			continue
		}
		if len(f.Annotations[configKeyAnnotation]) != 1 {
			t.Errorf("--%s should be bound to a config key", name)
		}
	}
}

func TestQueriesCommand(t *testing.T) {
	chdir(t)

	out, err := run(t, "queries", "  home gardening ")
	if err != nil {
		t.Fatalf("queries: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{
		`"write for us" home gardening`,
		`"guest post" home gardening`,
		`"contribute" home gardening`,
		`"submit an article" home gardening`,
		`"editorial guidelines" home gardening`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestQueriesCommand_DefaultNiche(t *testing.T) {
	chdir(t)

	out, err := run(t, "queries")
	if err != nil {
		t.Fatalf("queries: %v", err)
	}
	if !strings.HasPrefix(out, `"write for us" digital marketing`) {
		t.Errorf("expected default niche, got %q", out)
	}
}

func TestRunCommand_MissingAPIKey(t *testing.T) {
	chdir(t)
	t.Setenv("PROSPECTOR_SERP_API_KEY", "")

	_, err := run(t, "run", "gardening")
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestRunCommand_EmptyNiche(t *testing.T) {
	chdir(t)

	_, err := run(t, "run", "   ", "--api-key", "k")
	if !errors.Is(err, config.ErrEmptyNiche) {
		t.Fatalf("expected ErrEmptyNiche, got %v", err)
	}
}

func TestHistoryCommand_NoSource(t *testing.T) {
	chdir(t)

	if _, err := run(t, "history"); !errors.Is(err, errNoHistory) {
		t.Fatalf("expected errNoHistory, got %v", err)
	}
}

func TestRunHistoryReport_EndToEnd(t *testing.T) {
	dir := chdir(t)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<p>Pitch us at editor@garden.com</p>
			<a href="/contact">Contact us</a>
			<a href="/shop">Shop</a>
		</body></html>`))
	}))
	defer good.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer down.Close()

	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"organic_results":[
			{"title":"Write for us","link":%q,"snippet":"guest posts welcome"},
			{"title":"Down","link":%q,"snippet":"broken"}
		]}`, good.URL+"/write-for-us", down.URL+"/guest")
	}))
	defer search.Close()

	exportPath := filepath.Join(dir, "out.csv")
	t.Setenv("PROSPECTOR_SERP_ENDPOINT", search.URL)
	t.Setenv("PROSPECTOR_STORE_DRIVER", "sqlite")
	t.Setenv("PROSPECTOR_STORE_DSN", filepath.Join(dir, "history.db"))

	out, err := run(t, "run", "gardening",
		"--api-key", "test-key",
		"--delay", "0s",
		"--include", "",
		"--only-com-org=false",
		"--output", exportPath,
		"--report", "json",
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary struct {
		Queries     int `json:"queries"`
		RawResults  int `json:"raw_results"`
		Prospects   int `json:"prospects"`
		PagesOK     int `json:"pages_ok"`
		PagesFailed int `json:"pages_failed"`
		Emails      int `json:"emails"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Queries != 5 || summary.RawResults != 10 || summary.Prospects != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.PagesOK != 1 || summary.PagesFailed != 1 || summary.Emails != 1 {
		t.Errorf("unexpected page counts %+v", summary)
	}

	exportBackend, err := csvbackend.Open(exportPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer exportBackend.Close()
	rows, err := exportBackend.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 exported rows, got %d", len(rows))
	}
	if rows[0].URL != good.URL+"/write-for-us" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if got := strings.Join(rows[0].Emails, ";"); got != "editor@garden.com" {
		t.Errorf("emails = %q", got)
	}
	if got := strings.Join(rows[0].ContactLinks, ";"); got != good.URL+"/contact" {
		t.Errorf("contact links = %q", got)
	}
	if len(rows[1].Emails) != 0 || len(rows[1].ContactLinks) != 0 {
		t.Errorf("failed page should export empty lists: %+v", rows[1])
	}

	hist, err := run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(hist), "\n")
	if len(lines) != 3 || lines[0] != "domain,url,title,snippet,emails,contact_links" {
		t.Errorf("unexpected history output:\n%s", hist)
	}

	rep, err := run(t, "report", "--from", exportPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(rep, "Prospects:      2") {
		t.Errorf("unexpected report output:\n%s", rep)
	}
}
