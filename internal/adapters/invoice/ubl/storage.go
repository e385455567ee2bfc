package ubl

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists generated invoice XML on local disk, one file per
// invoice number. Regenerating an invoice overwrites its file; writes
// are not guarded against concurrent writers targeting the same
// invoice number (last writer wins).
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes the XML under <dir>/invoice_<number>.xml and returns the
// full path.
func (s *FileStore) Save(invoiceNumber, xml string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("invoice_%s.xml", invoiceNumber))
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		return "", fmt.Errorf("write invoice file: %w", err)
	}

	return path, nil
}
