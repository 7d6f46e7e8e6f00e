package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte(`{"stability_score":1,"records":[]}`)
	if err := s.Write("run.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("run.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("run.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "run.json" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestListOnlyJSONSessions(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("a.json", []byte("{}"))
	_ = s.Write("b.json", []byte(`{"records":[]}`))
	_ = s.Write("notes.txt", []byte("not a session"))
	if err := os.Mkdir(filepath.Join(s.Root(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("listed %d sessions, want 2", len(metas))
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("%s missing checksum", m.Name)
		}
		if m.UpdatedAt.IsZero() {
			t.Errorf("%s missing mod time", m.Name)
		}
	}
}

func TestChecksumTracksContent(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("run.json", []byte("first"))
	metas, _ := s.List()
	first := metas[0].Checksum

	_ = s.Write("run.json", []byte("second"))
	metas, _ = s.List()
	if metas[0].Checksum == first {
		t.Error("checksum must change with content")
	}
}

func TestRemove(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("gone.json", []byte("{}"))
	if err := s.Remove("gone.json"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Read("gone.json"); err == nil {
		t.Error("expected error reading removed file")
	}
}

func TestPathTraversalRejected(t *testing.T) {
	s := tempWorkspace(t)
	for _, name := range []string{"../escape.json", "/abs.json", ".", ""} {
		if err := s.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q) accepted an unsafe name", name)
		}
		if _, err := s.Read(name); err == nil {
			t.Errorf("Read(%q) accepted an unsafe name", name)
		}
	}
}
