// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache keeps reverse geocoding results in a JSON file so that a
// coordinate is looked up at most once across runs.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/selbybotany/gqc/spatial"
)

// Key returns the cache key of a canonical coordinate.
func Key(c spatial.Coordinate) string {
	return fmt.Sprintf("latitude:%s,longitude:%s",
		spatial.FormatDegrees(c.Latitude), spatial.FormatDegrees(c.Longitude))
}

// Entry is a cached value and the time it was stored.
type Entry struct {
	CreationTime time.Time       `json:"creation-time"`
	Value        json.RawMessage `json:"value"`
}

// UnmarshalJSON accepts both entries and the bare serialized locations
// written by older versions of the cache.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var legacy string
		if err := json.Unmarshal(data, &legacy); err != nil {
			return err
		}

		*e = Entry{Value: json.RawMessage(legacy)}

		return nil
	}

	type plain Entry

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	// The value itself may also be a serialized string.
	if v := bytes.TrimSpace(p.Value); len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}

		p.Value = json.RawMessage(s)
	}

	*e = Entry(p)

	return nil
}

// FileStore is a map of coordinate keys to locations persisted as a single
// JSON object. The whole file is rewritten on every insertion.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	now     func() time.Time
}

// Load opens the cache stored at path. A missing, empty or unreadable file
// yields an empty cache, and entries that cannot be decoded are dropped.
func Load(path string) *FileStore {
	s := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		// If the file does not exist, that's OK; we will create it.
		if !os.IsNotExist(err) {
			log.Printf("Cache %s unreadable, starting empty: %v\n", path, err)
		}

		return s
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return s
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("Cache %s is corrupt, starting empty: %v\n", path, err)

		return s
	}

	for k, v := range raw {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			log.Printf("Cache %s: dropping entry %s: %v\n", path, k, err)

			continue
		}

		if !json.Valid(e.Value) {
			log.Printf("Cache %s: dropping entry %s: value is not JSON\n", path, k)

			continue
		}

		s.entries[k] = e
	}

	return s
}

// Path returns the file backing the cache.
func (s *FileStore) Path() string {
	return s.path
}

// Len returns the number of cached entries.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Contains reports whether key is cached.
func (s *FileStore) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]

	return ok
}

// Get returns the location cached under key. Entries that no longer decode
// as locations are treated as missing.
func (s *FileStore) Get(key string) (spatial.Location, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return spatial.Location{}, false
	}

	loc, err := spatial.ParseLocation(e.Value)
	if err != nil {
		log.Printf("Cache %s: ignoring entry %s: %v\n", s.path, key, err)

		return spatial.Location{}, false
	}

	return loc, true
}

// Put stores loc under key and rewrites the file. The entry stays in memory
// even when the file cannot be written.
func (s *FileStore) Put(key string, loc spatial.Location) error {
	value, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encoding location: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{CreationTime: s.now().UTC(), Value: value}

	return s.dump()
}

// Entries returns a copy of every entry, keyed as stored.
func (s *FileStore) Entries() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}

	return out
}

// Writes the whole map to a temporary file and renames it over the cache.
func (s *FileStore) dump() error {
	output, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("setting up cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, output, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}

// CheckWritable verifies the cache file can be created or updated.
func CheckWritable(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cache directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("cache file %s is not writable: %w", path, err)
	}

	return f.Close()
}
