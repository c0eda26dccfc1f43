package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/yaktalk-test")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if dir.Path() != "/tmp/yaktalk-test" {
			t.Errorf("path = %s", dir.Path())
		}
	})

	t.Run("with empty path uses home dir", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, DefaultDirName)
		if dir.Path() != want {
			t.Errorf("path = %s, want %s", dir.Path(), want)
		}
	})
}

func TestPaths(t *testing.T) {
	dir, _ := New("/tmp/yaktalk-test")

	if got := dir.UploadsPath(); got != "/tmp/yaktalk-test/uploads" {
		t.Errorf("uploads path = %s", got)
	}
	if got := dir.ConfigPath(); got != "/tmp/yaktalk-test/config.yaml" {
		t.Errorf("config path = %s", got)
	}
	if got := dir.SessionUploadsDir("abc"); got != "/tmp/yaktalk-test/uploads/abc" {
		t.Errorf("session uploads dir = %s", got)
	}
}

func TestEnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "yaktalk"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	if !dir.Exists() {
		t.Error("directory should exist")
	}
	if _, err := os.Stat(dir.UploadsPath()); err != nil {
		t.Errorf("uploads directory not created: %v", err)
	}
}

func TestEnsureSessionUploadsDir(t *testing.T) {
	dir, _ := New(t.TempDir())
	if err := dir.EnsureSessionUploadsDir("sess-1"); err != nil {
		t.Fatalf("EnsureSessionUploadsDir: %v", err)
	}
	info, err := os.Stat(dir.SessionUploadsDir("sess-1"))
	if err != nil || !info.IsDir() {
		t.Errorf("session uploads dir not created: %v", err)
	}
}

func TestConfigExists(t *testing.T) {
	dir, _ := New(t.TempDir())
	if dir.ConfigExists() {
		t.Fatal("config should not exist")
	}
	if err := os.WriteFile(dir.ConfigPath(), []byte("server:\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !dir.ConfigExists() {
		t.Error("config should exist")
	}
}
