package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := DataPath()
	if err != nil {
		t.Fatalf("DataPath() error = %v", err)
	}
	if want := filepath.Join(home, ".swabber"); got != want {
		t.Errorf("DataPath() = %q, want %q", got, want)
	}

	db, err := DefaultDatabasePath()
	if err != nil {
		t.Fatalf("DefaultDatabasePath() error = %v", err)
	}
	if want := filepath.Join(home, ".swabber", "swabber.db"); db != want {
		t.Errorf("DefaultDatabasePath() = %q, want %q", db, want)
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "swabber.db")
	if err := EnsureDir(path); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
	if err := EnsureDir(path); err != nil {
		t.Errorf("EnsureDir() on existing dir error = %v", err)
	}
}
