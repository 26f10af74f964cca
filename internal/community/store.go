package community

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a post id does not exist.
var ErrNotFound = errors.New("community: post not found")

const storeFileName = "community_db.json"

type storeFile struct {
	Posts []*Post `json:"posts"`
}

// Store persists the community feed in a single JSON file. Every operation
// reads the whole file and mutations rewrite it completely; a mutex
// serializes access. Posts written by older versions get defaults filled in
// on read.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore creates a flat-file community store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{
		path: filepath.Join(dataDir, storeFileName),
		now:  time.Now,
	}
}

func (s *Store) read() (*storeFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &storeFile{}, nil
		}
		return nil, fmt.Errorf("community: failed to read store: %w", err)
	}
	if len(data) == 0 {
		return &storeFile{}, nil
	}
	var db storeFile
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("community: failed to decode store: %w", err)
	}
	for _, p := range db.Posts {
		fillDefaults(p)
	}
	return &db, nil
}

func fillDefaults(p *Post) {
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	p.CommentCount = len(p.Comments)
	if p.Likes < 0 {
		p.Likes = 0
	}
}

func (s *Store) write(db *storeFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("community: failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("community: failed to encode store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("community: failed to write store: %w", err)
	}
	return nil
}

// List returns all posts, newest first.
func (s *Store) List(_ context.Context) ([]*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}
	out := append([]*Post{}, db.Posts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// Get returns the post with the given id.
func (s *Store) Get(_ context.Context, id string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, p := range db.Posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// Create stores a new post, assigning id, timestamp and zeroed counters.
func (s *Store) Create(_ context.Context, p *Post) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}

	p.ID = uuid.NewString()
	p.Timestamp = s.now().UnixMilli()
	p.Likes = 0
	p.Comments = []Comment{}
	p.CommentCount = 0
	p.IsRecommended = false
	p.IsManuallyHot = false

	db.Posts = append(db.Posts, p)
	if err := s.write(db); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a post and returns it so callers can clean up its images.
func (s *Store) Delete(_ context.Context, id string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}
	for i, p := range db.Posts {
		if p.ID == id {
			db.Posts = append(db.Posts[:i], db.Posts[i+1:]...)
			if err := s.write(db); err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// Like increments a post's like counter and returns the updated post.
func (s *Store) Like(_ context.Context, id string) (*Post, error) {
	return s.mutate(id, func(p *Post) { p.Likes++ })
}

// AddComment appends a comment, assigning id and timestamp, and returns the
// updated post.
func (s *Store) AddComment(_ context.Context, id string, c Comment) (*Post, error) {
	c.ID = uuid.NewString()
	c.Timestamp = s.now().UnixMilli()
	return s.mutate(id, func(p *Post) {
		p.Comments = append(p.Comments, c)
		p.CommentCount = len(p.Comments)
	})
}

// SetRecommended flips the admin recommendation flag.
func (s *Store) SetRecommended(_ context.Context, id string, recommended bool) (*Post, error) {
	return s.mutate(id, func(p *Post) { p.IsRecommended = recommended })
}

// SetHot flips the admin manual-hot flag.
func (s *Store) SetHot(_ context.Context, id string, hot bool) (*Post, error) {
	return s.mutate(id, func(p *Post) { p.IsManuallyHot = hot })
}

func (s *Store) mutate(id string, apply func(*Post)) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, p := range db.Posts {
		if p.ID == id {
			apply(p)
			if err := s.write(db); err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	return nil, ErrNotFound
}
