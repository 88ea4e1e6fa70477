package modes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store caches the modes read from one file. It is safe for concurrent use.
type Store struct {
	path string

	mu     sync.RWMutex
	loaded bool
	modes  map[string]Mode
}

// NewStore creates a store for the file at path. Nothing is read until first use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file this store reads
func (s *Store) Path() string {
	return s.path
}

// Get returns the mode with the given slug
func (s *Store) Get(slug string) (Mode, bool) {
	modes := s.ensureLoaded()
	mode, ok := modes[slug]
	return mode, ok
}

// All returns every loaded mode ordered by slug
func (s *Store) All() []Mode {
	modes := s.ensureLoaded()

	all := make([]Mode, 0, len(modes))
	for _, mode := range modes {
		all = append(all, mode)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })

	return all
}

// Invalidate drops the cached modes; the next access re-reads the file
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.modes = nil
}

// Reload re-reads the file immediately and returns the number of modes loaded.
// On error the store holds an empty set and the error is returned.
func (s *Store) Reload() (int, error) {
	modes, err := readModes(s.path)

	s.mu.Lock()
	s.modes = modes
	s.loaded = true
	s.mu.Unlock()

	return len(modes), err
}

func (s *Store) ensureLoaded() map[string]Mode {
	s.mu.RLock()
	if s.loaded {
		modes := s.modes
		s.mu.RUnlock()
		return modes
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// another goroutine may have loaded while we waited for the write lock
	if !s.loaded {
		s.modes, _ = readModes(s.path)
		s.loaded = true
	}
	return s.modes
}

// readModes always returns a non-nil map; failures are logged and returned
func readModes(path string) (map[string]Mode, error) {
	modes := make(map[string]Mode)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", path).Msg("Custom modes file not found, no custom modes will be available")
			return modes, nil
		}
		log.Error().Err(err).Str("path", path).Msg("Failed to read custom modes file")
		return modes, fmt.Errorf("failed to read custom modes: %w", err)
	}

	var file modesFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Invalid JSON in custom modes file")
		return modes, fmt.Errorf("failed to decode custom modes: %w", err)
	}

	for i, raw := range file.CustomModes {
		var mode Mode
		if err := json.Unmarshal(raw, &mode); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping malformed custom mode")
			continue
		}
		if mode.Slug == "" {
			log.Warn().Int("index", i).Msg("Skipping custom mode without slug")
			continue
		}
		mode.Raw = append(json.RawMessage(nil), raw...)
		modes[mode.Slug] = mode
	}

	log.Info().Int("count", len(modes)).Str("path", path).Msg("Loaded custom modes")

	return modes, nil
}
