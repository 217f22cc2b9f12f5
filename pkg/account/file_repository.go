package account

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const accountsFileName = "accounts.json"

// FileRepository implements Store on top of a single JSON file.
// Direct writes and committed transactions rewrite the file atomically.
type FileRepository struct {
	*InMemoryRepository
	dataDir string
}

// NewFileRepository creates a new file-based account repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		InMemoryRepository: NewInMemoryRepository(),
		dataDir:            dataDir,
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	repo.persist = repo.save

	return repo, nil
}

// load reads account data from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, accountsFileName)

	// If file doesn't exist, start with empty data
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start with empty data
	if len(data) == 0 {
		return nil
	}

	loaded := newMemData()
	if err := json.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	r.data = loaded

	return nil
}

// save writes account data to file atomically
func (r *FileRepository) save(d *memData) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, accountsFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, accountsFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
