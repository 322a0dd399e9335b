package siteclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

const (
	fallbackContentKey = "content"
	fallbackPostsKey   = "posts"
)

// ErrNoSnapshot is returned by LastKnownContent and LastKnownPosts when
// nothing was ever persisted.
var ErrNoSnapshot = errors.New("siteclient: no saved snapshot")

// FallbackStore persists raw snapshots by key.
type FallbackStore interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// Snapshot is a persisted copy of a past fetch. It is never live data.
type Snapshot[T any] struct {
	Value   T         `json:"value"`
	SavedAt time.Time `json:"savedAt"`
}

// MemoryFallbackStore is a FallbackStore for tests and short-lived tools.
type MemoryFallbackStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *MemoryFallbackStore) Load(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryFallbackStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// DirFallbackStore writes one JSON file per key under Dir.
type DirFallbackStore struct {
	Dir string
}

func (s DirFallbackStore) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

func (s DirFallbackStore) Load(key string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return raw, err
}

func (s DirFallbackStore) Save(key string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create fallback dir: %w", err)
	}
	return writeFileAtomic(s.path(key), data, 0o600)
}

func saveSnapshot[T any](c *Client, key string, v T) {
	if c.fallback == nil {
		return
	}
	raw, err := json.Marshal(Snapshot[T]{Value: v, SavedAt: time.Now().UTC()})
	if err == nil {
		err = c.fallback.Save(key, raw)
	}
	if err != nil {
		c.log.Warn("failed to persist snapshot", "key", key, "error", err)
	}
}

func loadSnapshot[T any](c *Client, key string) (Snapshot[T], error) {
	var snap Snapshot[T]
	if c.fallback == nil {
		return snap, ErrNoSnapshot
	}
	raw, err := c.fallback.Load(key)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("siteclient: decode %s snapshot: %w", key, err)
	}
	return snap, nil
}

// LastKnownContent returns the most recent persisted landing document. Use it
// only after Content failed, and present it as possibly out of date.
func (c *Client) LastKnownContent() (Snapshot[sitecontent.ContentDocument], error) {
	return loadSnapshot[sitecontent.ContentDocument](c, fallbackContentKey)
}

// LastKnownPosts is LastKnownContent for the post list.
func (c *Client) LastKnownPosts() (Snapshot[[]sitecontent.BlogPost], error) {
	return loadSnapshot[[]sitecontent.BlogPost](c, fallbackPostsKey)
}
