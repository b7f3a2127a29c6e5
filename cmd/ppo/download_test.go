package main

import (
	"bytes"
	"compress/gzip"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammed-shakir/ppo-client/internal/core/ppo"
)

func gzipString(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(s))
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	return buf.Bytes()
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("H3_RES", "")
	t.Setenv("LOG_LEVEL", "error")
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDownloadCmd_WritesCSV(t *testing.T) {
	var gotQuery string
	payload := gzipString(t, "meta\nsource,latitude,longitude,year\nNEON,44.5,-123.2,1999\nNEON,44.5,-123.2,2000\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	out, _, err := runCLI(t, "download",
		"--endpoint", srv.URL+"/v1/download/",
		"--genus", "Quercus",
		"--bbox", "46,-122,44,-124",
		"--limit", "2")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.HasPrefix(gotQuery, "q=%2Bgenus:Quercus+AND+latitude:>=44+AND+latitude:<=46+AND+longitude:>=-124+AND+longitude:<=-122+AND+source:USA-NPN,NEON") {
		t.Fatalf("unexpected query %s", gotQuery)
	}
	if !strings.HasSuffix(gotQuery, "&limit=2") {
		t.Fatalf("limit missing from %s", gotQuery)
	}
	want := "source,latitude,longitude,year\nNEON,44.5,-123.2,1999\nNEON,44.5,-123.2,2000\n"
	if out != want {
		t.Fatalf("stdout=%q want %q", out, want)
	}
}

func TestDownloadCmd_Counts(t *testing.T) {
	payload := gzipString(t, "meta\nsource,latitude,longitude\nNEON,44.5,-123.2\nNEON,44.5,-123.2\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	out, _, err := runCLI(t, "download", "--endpoint", srv.URL+"/", "--genus", "Acer", "--h3-res", "5", "--counts")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "h3Cell,count" || !strings.HasSuffix(lines[1], ",2") {
		t.Fatalf("unexpected counts output:\n%s", out)
	}
}

func TestDownloadCmd_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, errOut, err := runCLI(t, "download", "--endpoint", srv.URL+"/", "--term-id", "obo:PPO_0002313")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if out != "" || !strings.Contains(errOut, "no results found") {
		t.Fatalf("stdout=%q stderr=%q", out, errOut)
	}
}

func TestDownloadCmd_NoFilters(t *testing.T) {
	_, _, err := runCLI(t, "download", "--endpoint", "http://127.0.0.1:1/", "--limit", "5")
	var ve *ppo.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDownloadCmd_CountsNeedsRes(t *testing.T) {
	_, _, err := runCLI(t, "download", "--genus", "Acer", "--counts")
	if err == nil {
		t.Fatal("expected error for --counts without --h3-res")
	}
}

func TestDownloadCmd_OutputFile(t *testing.T) {
	payload := gzipString(t, "meta\nsource,latitude,longitude\nNEON,44.5,-123.2\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "obs.csv")
	out, _, err := runCLI(t, "download", "--endpoint", srv.URL+"/", "--genus", "Acer", "--output", path)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if out != "" {
		t.Fatalf("stdout=%q want empty when --output is set", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "source,latitude,longitude\nNEON,44.5,-123.2\n"; string(b) != want {
		t.Fatalf("file=%q want %q", b, want)
	}
}

func TestDownloadCmd_OutputFileUncreatable(t *testing.T) {
	payload := gzipString(t, "meta\nsource\nNEON\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "missing-dir", "obs.csv")
	if _, _, err := runCLI(t, "download", "--endpoint", srv.URL+"/", "--genus", "Acer", "--output", path); err == nil {
		t.Fatal("expected error for uncreatable output path")
	}
}
