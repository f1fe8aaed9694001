// Package chunkstore persists stage output as numbered, capacity-bounded
// JSON array files. Every chunk except the last is full; appends fill the
// last partial chunk before opening new ones. Writes go through a temp file
// and rename so a concurrent reader only ever sees whole chunks.
package chunkstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/model"
)

// DefaultCapacity matches the historical chunk size of the corpus.
const DefaultCapacity = 1000

// Chunk is one numbered JSON array file in a store directory.
type Chunk struct {
	Index int
	Path  string
}

// Store manages the chunk files for one stage's output directory.
type Store struct {
	dir      string
	prefix   string // file name prefix, e.g. "all_patents"
	capacity int
}

// New creates a Store over dir with the given file prefix and chunk
// capacity. Capacity <= 0 falls back to DefaultCapacity.
func New(dir, prefix string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{dir: dir, prefix: prefix, capacity: capacity}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Capacity returns the configured chunk capacity.
func (s *Store) Capacity() int { return s.capacity }

// List discovers chunk files named <prefix>_<index>.json under the store
// directory, sorted by index ascending. Files whose index fails to parse
// are ignored.
func (s *Store) List() ([]Chunk, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "chunkstore: read dir %s", s.dir)
	}

	var chunks []Chunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, s.prefix+"_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, s.prefix+"_"), ".json")
		idx, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		chunks = append(chunks, Chunk{Index: idx, Path: filepath.Join(s.dir, name)})
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// LoadProcessedKeys scans every chunk and returns the set of identity keys
// already persisted. Keys follow the record fallback chain (original id,
// URL-embedded id, record id). Chunks that fail to parse are logged and
// skipped; records contributing no key are silently skipped.
func (s *Store) LoadProcessedKeys() (map[string]struct{}, error) {
	chunks, err := s.List()
	if err != nil {
		return nil, err
	}

	processed := make(map[string]struct{})
	for _, c := range chunks {
		records, err := readChunk(c.Path)
		if err != nil {
			zap.L().Warn("skipping unreadable chunk",
				zap.String("path", c.Path),
				zap.Error(err),
			)
			continue
		}
		for _, r := range records {
			if key := r.Key(); key != "" {
				processed[key] = struct{}{}
			}
		}
	}
	return processed, nil
}

// LoadAll reads every record from every chunk, in chunk order. Unreadable
// chunks are logged and skipped, matching LoadProcessedKeys.
func (s *Store) LoadAll() ([]*model.Patent, error) {
	chunks, err := s.List()
	if err != nil {
		return nil, err
	}

	var all []*model.Patent
	for _, c := range chunks {
		records, err := readChunk(c.Path)
		if err != nil {
			zap.L().Warn("skipping unreadable chunk",
				zap.String("path", c.Path),
				zap.Error(err),
			)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

// Append persists records to the store: the last partial chunk is filled to
// capacity first, then the remainder is split into new chunks of exactly
// capacity records (the final one may be smaller), with indices continuing
// from the last existing chunk. An empty record list is a no-op.
func (s *Store) Append(records []*model.Patent) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrapf(err, "chunkstore: create dir %s", s.dir)
	}

	chunks, err := s.List()
	if err != nil {
		return err
	}

	nextIdx := 0
	if len(chunks) > 0 {
		last := chunks[len(chunks)-1]
		nextIdx = last.Index + 1

		existing, err := readChunk(last.Path)
		if err != nil {
			// Treat an unreadable last chunk as empty rather than failing
			// the whole append; its records were already counted missing by
			// the processed-key scan.
			zap.L().Warn("last chunk unreadable, overwriting",
				zap.String("path", last.Path),
				zap.Error(err),
			)
			existing = nil
		}

		if len(existing) < s.capacity {
			space := s.capacity - len(existing)
			if space > len(records) {
				space = len(records)
			}
			filled := append(existing, records[:space]...)
			if err := writeAtomic(last.Path, filled); err != nil {
				return err
			}
			zap.L().Info("filled partial chunk",
				zap.String("path", last.Path),
				zap.Int("appended", space),
				zap.Int("total", len(filled)),
			)
			records = records[space:]
		}
	}

	for len(records) > 0 {
		n := s.capacity
		if n > len(records) {
			n = len(records)
		}
		path := filepath.Join(s.dir, fmt.Sprintf("%s_%03d.json", s.prefix, nextIdx))
		if err := writeAtomic(path, records[:n]); err != nil {
			return err
		}
		zap.L().Info("wrote chunk",
			zap.String("path", path),
			zap.Int("records", n),
		)
		records = records[n:]
		nextIdx++
	}

	return nil
}

func readChunk(path string) ([]*model.Patent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "chunkstore: read %s", path)
	}
	var records []*model.Patent
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "chunkstore: parse %s", path)
	}
	return records, nil
}

// writeAtomic marshals records and renames a temp file over path, so a
// reader never observes a partially written chunk.
func writeAtomic(path string, records []*model.Patent) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "chunkstore: marshal %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "chunkstore: write temp %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "chunkstore: rename %s", path)
	}
	return nil
}
