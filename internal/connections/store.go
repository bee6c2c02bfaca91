// Package connections keeps saved connections in a YAML file. The file is
// read once when the store opens and rewritten in full on every change.
package connections

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

var (
	ErrNotFound = errors.New("saved connection not found")
	ErrInvalid  = errors.New("connection type and connection string are required")
)

type SavedConnection struct {
	ID        string                 `json:"id" yaml:"id"`
	Name      string                 `json:"name" yaml:"name"`
	Config    query.ConnectionConfig `json:"config" yaml:"config"`
	LastQuery string                 `json:"lastQuery" yaml:"last_query"`
	LastUsed  time.Time              `json:"lastUsed" yaml:"last_used"`
}

type fileFormat struct {
	Connections []SavedConnection `yaml:"connections"`
}

// Store is safe for concurrent use. An empty path keeps everything in memory.
type Store struct {
	mu    sync.Mutex
	path  string
	items []SavedConnection
	now   func() time.Time
}

func Open(path string) (*Store, error) {
	store := &Store{path: strings.TrimSpace(path), now: time.Now}
	if store.path == "" {
		return store, nil
	}
	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read connections file: %w", err)
	}
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse connections file: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Connections))
	for _, item := range file.Connections {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("parse connections file: connection %q has no id", item.Name)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("parse connections file: duplicate id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	store.items = file.Connections
	return store, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) List() []SavedConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SavedConnection(nil), s.items...)
}

func (s *Store) Get(id string) (SavedConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return SavedConnection{}, ErrNotFound
}

// Save inserts or replaces conn by id. The saved entry moves to the end of
// the list. A missing id is generated, and the config id always matches it.
func (s *Store) Save(conn SavedConnection) (SavedConnection, error) {
	if strings.TrimSpace(string(conn.Config.Type)) == "" || strings.TrimSpace(conn.Config.ConnectionString) == "" {
		return SavedConnection{}, ErrInvalid
	}
	if strings.TrimSpace(conn.ID) == "" {
		conn.ID = uuid.NewString()
	}
	conn.Config.ID = conn.ID
	if conn.Name == "" {
		conn.Name = conn.Config.Name
	}
	conn.Config.Name = conn.Name
	if conn.LastUsed.IsZero() {
		conn.LastUsed = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]SavedConnection, 0, len(s.items)+1)
	for _, item := range s.items {
		if item.ID != conn.ID {
			next = append(next, item)
		}
	}
	next = append(next, conn)
	if err := s.persist(next); err != nil {
		return SavedConnection{}, err
	}
	s.items = next
	return conn, nil
}

// Touch records the last query run against a saved connection.
func (s *Store) Touch(id, lastQuery string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	next := append([]SavedConnection(nil), s.items...)
	next[i].LastQuery = lastQuery
	next[i].LastUsed = at.UTC()
	if err := s.persist(next); err != nil {
		return err
	}
	s.items = next
	return nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	next := make([]SavedConnection, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.persist(next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// Ping checks that the directory holding the file exists.
func (s *Store) Ping() error {
	if s.path == "" {
		return nil
	}
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("connections directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("connections directory %q is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// persist rewrites the whole file through a temp file and rename.
func (s *Store) persist(items []SavedConnection) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(fileFormat{Connections: items})
	if err != nil {
		return fmt.Errorf("encode connections: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".connections-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp connections file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write connections file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod connections file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close connections file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace connections file: %w", err)
	}
	return nil
}
