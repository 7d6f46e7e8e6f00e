// Package testutil provides shared test helpers for setting up telemetry
// workspaces and catalog databases.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/starford/naudiz/internal/index"
	"github.com/starford/naudiz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "naudiz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary telemetry directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	telemetryDir := t.TempDir()
	store, err := storage.NewFS(telemetryDir)
	if err != nil {
		t.Fatal(err)
	}
	return telemetryDir, store
}

// WriteSession writes a raw session document into the workspace.
func WriteSession(t *testing.T, store storage.Provider, name, content string) {
	t.Helper()
	if err := store.Write(name, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

// SessionDoc builds a minimal session document whose records carry the given
// stability scores.
func SessionDoc(scores ...float64) string {
	records := make([]string, 0, len(scores))
	for i, s := range scores {
		records = append(records, fmt.Sprintf(
			`{"context":"ctx-%d","seed":%d,"thread_id":"%d","acquired_at":"2024-01-15T10:30:0%dZ","released_at":null,"duration_ms":1.500,"stability_score":%g}`,
			i, 1000+i, 100+i, i%10, s))
	}
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	if len(scores) > 0 {
		mean /= float64(len(scores))
	}
	return fmt.Sprintf(`{"stability_score":%g,"records":[%s]}`, mean, strings.Join(records, ","))
}
