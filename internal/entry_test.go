package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/naudiz/internal/index"
	"github.com/starford/naudiz/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = slog.LevelError
	cfg.Workspace.TelemetryDir = filepath.Join(dir, "telemetry")
	cfg.Workspace.SummaryPath = filepath.Join(dir, "build", "summary.json")
	cfg.SQLite.Path = filepath.Join(dir, "catalog.db")
	return cfg
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("Run without config should fail")
	}
}

func TestRunWritesInitialSummary(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Workspace.TelemetryDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sessionPath := filepath.Join(cfg.Workspace.TelemetryDir, "run.json")
	if err := os.WriteFile(sessionPath, []byte(testutil.SessionDoc(0.9, 0.7)), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, WithConfig(cfg)) }()

	// The initial sync and summary write happen before the watcher loop.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(cfg.Workspace.SummaryPath); err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}

	if _, err := os.Stat(cfg.Workspace.SummaryPath); err != nil {
		t.Fatalf("summary artifact missing: %v", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer db.Close()
	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionCount != 2 {
		t.Errorf("catalog = %+v, want one session with 2 records", sessions)
	}
}

func TestSyncWithConfiguredAggregator(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Workspace.Backend = "cpu"
	cfg.Workspace.Device = "host"

	db := testutil.TestDB(t)
	_, store := testutil.TestWorkspace(t)
	testutil.WriteSession(t, store, "run.json", testutil.SessionDoc(0.8))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := index.Sync(db, store, NewAggregator(cfg), logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].MeanStability != 0.8 {
		t.Errorf("catalog = %+v", sessions)
	}
}
