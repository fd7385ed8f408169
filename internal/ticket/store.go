package ticket

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// recordIDPattern guards against path traversal through caller-supplied
// IDs reaching the filesystem.
var recordIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Store persists tickets as one JSON record per ID under a directory.
//
// Writes are atomic (temp file + rename) and serialized by a write lock,
// so a read-modify-write through Update never interleaves with another
// transition on any record.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates the ticket directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ticket directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the ticket record, replacing any existing one.
func (s *Store) Save(t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(t)
}

// Get returns the ticket with the given ID.
func (s *Store) Get(id string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

// List returns all tickets ordered by creation time, then ID.
func (s *Store) List() ([]*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading ticket directory: %w", err)
	}

	tickets := make([]*Ticket, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
		}
		return tickets[i].ID < tickets[j].ID
	})
	return tickets, nil
}

// Update applies fn to the stored ticket under the write lock and
// persists the result. fn returning an error aborts without writing.
func (s *Store) Update(id string, fn func(t *Ticket) error) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.write(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Clear removes every ticket record. Clearing an empty store succeeds.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading ticket directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("removing ticket record %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) path(id string) (string, error) {
	if !recordIDPattern.MatchString(id) {
		return "", ErrTicketNotFound
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *Store) read(id string) (*Ticket, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("reading ticket %s: %w", id, err)
	}
	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding ticket %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) write(t *Ticket) error {
	path, err := s.path(t.ID)
	if err != nil {
		return fmt.Errorf("invalid ticket ID %q", t.ID)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ticket %s: %w", t.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, t.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing ticket %s: %w", t.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persisting ticket %s: %w", t.ID, err)
	}
	return nil
}
