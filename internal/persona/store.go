package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a persona id does not exist.
var ErrNotFound = errors.New("persona: not found")

const storeFileName = "personas.json"

type storeFile struct {
	Personas []*Persona `json:"personas"`
}

// Store persists personas in a single JSON file. Every operation reads the
// whole file and mutations rewrite it completely; a mutex serializes access.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a flat-file persona store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, storeFileName)}
}

func (s *Store) read() (*storeFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &storeFile{}, nil
		}
		return nil, fmt.Errorf("persona: failed to read store: %w", err)
	}
	if len(data) == 0 {
		return &storeFile{}, nil
	}
	var db storeFile
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("persona: failed to decode store: %w", err)
	}
	return &db, nil
}

func (s *Store) write(db *storeFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("persona: failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("persona: failed to encode store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persona: failed to write store: %w", err)
	}
	return nil
}

// List returns all personas sorted by name.
func (s *Store) List(_ context.Context) ([]*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]*Persona, 0, len(db.Personas))
	for _, p := range db.Personas {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the persona with the given id.
func (s *Store) Get(_ context.Context, id string) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, p := range db.Personas {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Create stores a new persona, assigning an id when missing and defaulting
// favorability for out-of-range values.
func (s *Store) Create(_ context.Context, p *Persona) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}

	stored := p.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if !ValidFavorability(stored.Favorability) {
		stored.Favorability = DefaultFavorability
	}
	db.Personas = append(db.Personas, stored)
	if err := s.write(db); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// Update replaces the stored persona with the same id.
func (s *Store) Update(_ context.Context, p *Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return err
	}
	for i, existing := range db.Personas {
		if existing.ID == p.ID {
			db.Personas[i] = p.Clone()
			return s.write(db)
		}
	}
	return ErrNotFound
}

// Delete removes the persona with the given id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return err
	}
	for i, existing := range db.Personas {
		if existing.ID == id {
			db.Personas = append(db.Personas[:i], db.Personas[i+1:]...)
			return s.write(db)
		}
	}
	return ErrNotFound
}

// SetFavorability overwrites a persona's favorability. Out-of-range values
// are rejected.
func (s *Store) SetFavorability(_ context.Context, id string, value int) error {
	if !ValidFavorability(value) {
		return fmt.Errorf("persona: favorability %d out of range", value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return err
	}
	for _, existing := range db.Personas {
		if existing.ID == id {
			existing.Favorability = value
			return s.write(db)
		}
	}
	return ErrNotFound
}
