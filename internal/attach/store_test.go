package attach

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.SetLogger(log.New(io.Discard, "", 0))
	return s
}

func TestPutPathOpen(t *testing.T) {
	s := openTestStore(t)

	path, err := s.Put("uploads/2026/essay.txt", "essay.txt", strings.NewReader("draft"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if filepath.Base(path) != "essay.txt" || !strings.HasPrefix(path, s.Dir()) {
		t.Errorf("Put() path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "draft" {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}

	got, err := s.Path("uploads/2026/essay.txt")
	if err != nil || got != path {
		t.Errorf("Path() = %s, %v; want %s", got, err, path)
	}

	rc, err := s.Open("uploads/2026/essay.txt")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer rc.Close()
	if b, _ := io.ReadAll(rc); string(b) != "draft" {
		t.Errorf("Open() content = %q", b)
	}
}

func TestPut_ReplacesEarlierCopy(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Put("42", "a.pdf", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	second, err := s.Put("42", "b.pdf", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	if _, err := os.Stat(first); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("earlier copy still on disk: %v", err)
	}
	if got, _ := s.Path("42"); got != second {
		t.Errorf("Path() = %s, want %s", got, second)
	}
	if ids := s.FileIDs(); len(ids) != 1 || ids[0] != "42" {
		t.Errorf("FileIDs() = %v", ids)
	}
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)

	path, err := s.Put("7", "notes.md", strings.NewReader("# hi"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := s.Remove("7"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}
	if _, err := s.Path("7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Path() error = %v, want ErrNotFound", err)
	}
	if err := s.Remove("7"); err != nil {
		t.Errorf("second Remove() = %v", err)
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":        "report.pdf",
		"../../etc/passwd":  "passwd",
		"":                  "file",
		"  spaced name.txt ": "spaced name.txt",
	}
	for in, want := range tests {
		if got := cleanName(in); got != want {
			t.Errorf("cleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpen_RequiresDir(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Error("Open() with blank dir should fail")
	}
}
