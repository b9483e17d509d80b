// Package summary persists per-user conversation summaries in a small JSON
// file. Summaries are standing context appended to system instructions, so
// they must survive restarts, unlike session histories.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/alebed/magebot/internal/log"
)

// Store reads and writes the summary file. An in-process mutex serializes
// goroutines; a file lock guards against a second process (e.g. a manual
// run next to the service) touching the same file.
type Store struct {
	path   string
	mu     sync.Mutex
	flock  *flock.Flock
	logger log.Logger
}

// NewStore creates a store over path. The file is created on first Set.
func NewStore(path string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		path:   path,
		flock:  flock.New(path + ".lock"),
		logger: logger,
	}
}

// Get returns the stored summary for userID, or "" when none exists.
func (s *Store) Get(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flock.Lock(); err != nil {
		return "", fmt.Errorf("locking summary file: %w", err)
	}
	defer s.flock.Unlock()

	summaries, err := s.read()
	if err != nil {
		return "", err
	}
	return summaries[userID], nil
}

// Set stores the summary for userID, replacing any previous one.
func (s *Store) Set(userID, text string) error {
	return s.update(func(summaries map[string]string) {
		summaries[userID] = text
	})
}

// Delete removes the summary for userID. Removing an absent key is not an
// error.
func (s *Store) Delete(userID string) error {
	return s.update(func(summaries map[string]string) {
		delete(summaries, userID)
	})
}

func (s *Store) update(mutate func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flock.Lock(); err != nil {
		return fmt.Errorf("locking summary file: %w", err)
	}
	defer s.flock.Unlock()

	summaries, err := s.read()
	if err != nil {
		return err
	}
	mutate(summaries)
	return s.write(summaries)
}

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading summary file: %w", err)
	}

	summaries := map[string]string{}
	if err := json.Unmarshal(data, &summaries); err != nil {
		// A corrupt file should not brick every future turn. Start over and
		// keep the broken content out of the way.
		s.logger.Warn("summary file corrupt, starting fresh", "path", s.path, "error", err)
		return map[string]string{}, nil
	}
	return summaries, nil
}

// write replaces the file atomically so a crash mid-write never leaves a
// half-serialized map behind.
func (s *Store) write(summaries map[string]string) error {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summaries: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".summaries-*")
	if err != nil {
		return fmt.Errorf("creating temp summary file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing summaries: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp summary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing summary file: %w", err)
	}
	return nil
}
