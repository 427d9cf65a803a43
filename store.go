package sseclient

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is an abstraction of last seen event ID persistence. Client saves ID
// of every event carrying one and restores the resume position on connect.
// Session argument is a key derived from the stream address, single store
// instance can be shared by multiple clients consuming different streams.
//
// Get returns an empty string if no ID was saved for the session yet. Store
// errors are never fatal for the client, they are logged and the stream
// continues without a resume guarantee.
type Store interface {
	Get(session string) (string, error)
	Set(session string, id string) error
}

// MemoryStore is an in-process Store implementation backed by an expiring
// cache. With a non zero TTL resume positions of abandoned streams are
// dropped automatically and the next connect after expiry starts from the
// live stream tip.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a memory backed store with entries that never
// expire. It is the default store of the client.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

// NewMemoryStoreTTL creates a memory backed store that drops resume
// positions not updated for longer than ttl. Expired entries are removed by
// a background janitor running on the cleanup interval.
func NewMemoryStoreTTL(ttl, cleanup time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(ttl, cleanup)}
}

func (s *MemoryStore) Get(session string) (string, error) {
	v, ok := s.c.Get(session)
	if !ok {
		return "", nil
	}
	id, _ := v.(string)
	return id, nil
}

func (s *MemoryStore) Set(session, id string) error {
	s.c.Set(session, id, gocache.DefaultExpiration)
	return nil
}

// FileStore is a Store implementation backed by a single JSON file. State
// updates are written atomically via a temporary file, resume positions
// survive application restarts. Single FileStore instance can be shared by
// all clients in the process.
type FileStore struct {
	mu     sync.Mutex
	path   string
	loaded bool
	state  map[string]string
}

// NewFileStore creates a file backed store. The file is created on the first
// Set call, a missing file is not an error.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(session string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", err
	}
	return s.state[session], nil
}

func (s *FileStore) Set(session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		if s.state == nil {
			return err
		}
		// replace the corrupt state file instead of failing every write
		s.state = make(map[string]string)
		s.loaded = true
	}
	s.state[session] = id
	return s.flush()
}

// load reads the state file on first use, following calls are served from
// memory. A file that exists but does not parse leaves the store unloaded,
// Get keeps reporting the error until the file is fixed or rewritten by Set.
// Caller must hold s.mu.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.state = make(map[string]string)
	case err != nil:
		return err
	default:
		s.state = make(map[string]string)
		if err := json.Unmarshal(data, &s.state); err != nil {
			return err
		}
	}
	s.loaded = true
	return nil
}

// flush writes the whole state to disk. Data is written to a temporary file
// in the same directory first, rename makes the update atomic. Caller must
// hold s.mu.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.state, "", "\t")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
