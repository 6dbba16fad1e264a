package choices

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path    string
	choices map[string]*Choice
	closed  bool
	mu      sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int       `json:"version"`
	UpdatedAt string    `json:"updated_at"`
	Choices   []*Choice `json:"choices"`
}

const currentVersion = 1

// NewJSONStore creates a store at path. The file is created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path:    path,
		choices: make(map[string]*Choice),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("choices: create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("choices: load store: %w", err)
		}
	}

	return store, nil
}

// DefaultPath returns ~/.shade/choices.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("choices: home directory: %w", err)
	}
	return filepath.Join(homeDir, ".shade", "choices.json"), nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	for _, c := range stored.Choices {
		s.choices[c.ID] = c
	}
	return nil
}

// save writes the store to disk. Callers hold the lock.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Choices:   s.sorted(),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("choices: marshal: %w", err)
	}

	// Write to temp file first, then rename
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("choices: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("choices: rename temp file: %w", err)
	}
	return nil
}

// sorted returns the choices newest first, ties broken by ID.
func (s *JSONStore) sorted() []*Choice {
	out := make([]*Choice, 0, len(s.choices))
	for _, c := range s.choices {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Save implements Store.
func (s *JSONStore) Save(_ context.Context, c *Choice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := prepare(c, time.Now()); err != nil {
		return err
	}

	cp := *c
	s.choices[c.ID] = &cp
	return s.save()
}

// Get implements Store.
func (s *JSONStore) Get(_ context.Context, id string) (*Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.choices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

// List implements Store.
func (s *JSONStore) List(_ context.Context, limit int) ([]*Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted()
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*Choice, len(all))
	for i, c := range all {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}

// Count returns the number of stored choices.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.choices)
}

// Close implements Store. Later saves fail with ErrStoreClosed.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*JSONStore)(nil)
