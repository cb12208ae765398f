package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists finalized session records as an ordered, append-only
// collection. Implementations never surface read corruption to callers
// beyond an empty result; Save errors are reported but callers treat
// persistence as best-effort.
type Store interface {
	Save(record SessionRecord) error
	LoadAll() ([]SessionRecord, error)
}

// FileStore keeps all records in a single JSON array file.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore returns a store backed by the given file path. The file
// and its directory are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save appends one finalized record to the collection.
func (s *FileStore) Save(record SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	records, corrupt := s.readRecords()
	if corrupt {
		// Holding the write lock: move the unparseable file aside so the
		// fresh collection does not overwrite the only copy.
		backupPath := s.path + ".backup"
		if err := os.Rename(s.path, backupPath); err != nil {
			return fmt.Errorf("failed to back up corrupt store file: %w", err)
		}
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session records: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session records: %w", err)
	}
	return nil
}

// LoadAll reads the whole collection, oldest first. Missing or
// unreadable storage yields an empty slice, never an error the caller
// has to branch on.
func (s *FileStore) LoadAll() ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, _ := s.readRecords()
	return records, nil
}

// readRecords parses the backing file. It never mutates the
// filesystem, so it is safe under the read lock; corruption is
// reported to Save, which backs the file up under the write lock.
func (s *FileStore) readRecords() ([]SessionRecord, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return []SessionRecord{}, false
	}

	var records []SessionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return []SessionRecord{}, true
	}
	return records, false
}

// MemoryStore is the in-memory Store used by tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []SessionRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends the record.
func (s *MemoryStore) Save(record SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// LoadAll returns a copy of all saved records.
func (s *MemoryStore) LoadAll() ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]SessionRecord, len(s.records))
	copy(copied, s.records)
	return copied, nil
}
