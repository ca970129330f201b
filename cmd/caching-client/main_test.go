package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("CACHING_CLIENT_DB", "env.db")
	t.Setenv("CACHING_CLIENT_DURATION", "5m")
	t.Setenv("CACHING_CLIENT_COUNT", "7")

	opts, err := loadOptions(nil)
	if err != nil {
		t.Fatalf("Error: %+v", err)
	}
	if opts.DB != "env.db" || opts.Duration != 5*time.Minute || opts.Count != 7 {
		t.Fatalf("Options are %+v", opts)
	}
	if opts.Sleep != time.Second {
		t.Fatalf("Default sleep is %s", opts.Sleep)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CACHING_CLIENT_DB", "env.db")

	opts, err := loadOptions([]string{"-db", "flag.db", "-duration", "0", "-vv"})
	if err != nil {
		t.Fatalf("Error: %+v", err)
	}
	if opts.DB != "flag.db" || opts.Duration != 0 || !opts.Trace {
		t.Fatalf("Options are %+v", opts)
	}
}

func TestInvalidCount(t *testing.T) {
	if _, err := loadOptions([]string{"-count", "0"}); err == nil {
		t.Fatalf("Expected error for zero count")
	}
}

func TestRun(t *testing.T) {
	handleCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCount++
		w.Write([]byte("Hello world"))
	}))
	defer server.Close()

	out := &bytes.Buffer{}
	err := run(options{
		DB:    filepath.Join(t.TempDir(), "run.db"),
		URL:   server.URL,
		Count: 3,
	}, out)
	if err != nil {
		t.Fatalf("Error: %+v", err)
	}
	if handleCount != 1 {
		t.Fatalf("Server called %d times", handleCount)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Output is %s", out)
	}
	if !strings.Contains(lines[0], "fwd=uri-miss") || !strings.Contains(lines[2], "hit") {
		t.Fatalf("Output is %s", out)
	}
}
