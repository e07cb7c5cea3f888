package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/patrickmn/go-cache"
)

// Persisted keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUserName     = "userName"
)

var sessionKeys = []string{KeyToken, KeyRefreshToken, KeyUserName}

// errCorruptFile marks a session file that exists but cannot be parsed.
var errCorruptFile = errors.New("corrupt session file")

// Storage is a flat key-value store that survives between runs.
// Available reports whether the store can be used in the current environment;
// the manager never touches an unavailable store.
type Storage interface {
	Available() bool
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// FileStore keeps the session in a JSON file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the session file location under the user config dir,
// or an empty string when the environment has none.
func DefaultPath(app string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, app, "session.json")
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Available() bool {
	return s != nil && s.path != ""
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false
	}

	v, ok := values[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadForWrite()
	if err != nil {
		return err
	}

	values[key] = value
	return s.save(values)
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadForWrite()
	if err != nil {
		return err
	}

	for _, key := range keys {
		delete(values, key)
	}

	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w %q: %v", errCorruptFile, s.path, err)
	}

	return values, nil
}

// loadForWrite is load for Set and Delete: a corrupt file is overwritten from
// scratch so a broken session never locks the user out.
func (s *FileStore) loadForWrite() (map[string]string, error) {
	values, err := s.load()
	if errors.Is(err, errCorruptFile) {
		return make(map[string]string), nil
	}
	return values, err
}

// save writes through a temp file so a crash never leaves a half-written session.
func (s *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// MemoryStore keeps the session for the lifetime of the process only.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Available() bool { return s != nil }

func (s *MemoryStore) Get(key string) (string, bool) {
	if x, found := s.cache.Get(key); found {
		v, ok := x.(string)
		return v, ok
	}
	return "", false
}

func (s *MemoryStore) Set(key, value string) error {
	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}
