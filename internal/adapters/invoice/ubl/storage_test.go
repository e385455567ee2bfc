package ubl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "invoices")
	store := NewFileStore(dir)

	path, err := store.Save("INV-001", "<Invoice/>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != filepath.Join(dir, "invoice_INV-001.xml") {
		t.Errorf("unexpected path %q", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(content) != "<Invoice/>" {
		t.Errorf("expected file content %q, got %q", "<Invoice/>", string(content))
	}
}

func TestFileStore_Save_Overwrites(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, err := store.Save("INV-001", "<Old/>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, err := store.Save("INV-001", "<New/>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "<New/>" {
		t.Errorf("expected last write to win, got %q", string(content))
	}
}
