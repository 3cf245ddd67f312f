package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Repository persists a set of refnos. Making persistence an explicit
// interface keeps the lifecycle visible and lets tests swap in a fake.
type Repository interface {
	Load() ([]string, error)
	Save(refnos []string) error
}

// FileRepository stores refnos as a JSON array in a single file under the
// client state directory.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by stateDir/name.
func NewFileRepository(stateDir, name string) *FileRepository {
	return &FileRepository{path: filepath.Join(stateDir, name)}
}

// Load reads the persisted set. A missing file is an empty set.
func (r *FileRepository) Load() ([]string, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	var refnos []string
	if err := json.Unmarshal(raw, &refnos); err != nil {
		// A corrupt file only delays visibility of orders that still exist
		// server-side; start over rather than fail the whole client.
		return nil, nil
	}
	return refnos, nil
}

// Save durably writes the set. Every tracker mutation calls this before the
// caller continues, so a crash can never be observed between an in-memory
// change and its persistence.
func (r *FileRepository) Save(refnos []string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if refnos == nil {
		refnos = []string{}
	}
	raw, err := json.Marshal(refnos)
	if err != nil {
		return err
	}

	if err := os.WriteFile(r.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.path, err)
	}
	return nil
}
