// Package knowledge loads and serves the oncology guideline knowledge base.
//
// The knowledge base is a single immutable snapshot constructed at process
// start. Every entry is integrity-checked during load; a malformed dataset
// aborts startup rather than risking wrong medical guidance at query time.
// After load the snapshot is read-only and safe for unlimited concurrent
// readers. Reloads produce a new snapshot swapped in by the caller, never an
// in-place edit.
package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/domain"
)

// dataset is the on-disk shape of the guideline dataset.
type dataset struct {
	Version string                   `json:"version"`
	Entries []*domain.GuidelineEntry `json:"entries"`
}

// Snapshot is an immutable, fully validated guideline knowledge base.
// It implements domain.GuidelineLookup.
type Snapshot struct {
	version string
	entries map[string]*domain.GuidelineEntry
	ordered []*domain.GuidelineEntry
}

// Load reads and validates a guideline dataset from the reader. It returns a
// MalformedKnowledgeBaseError if any entry violates its invariants or two
// entries share a (cancer type, stage) key.
func Load(r io.Reader, logger *logrus.Logger) (*Snapshot, error) {
	var ds dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, domain.NewMalformedKnowledgeBaseError("", fmt.Sprintf("decoding dataset: %v", err))
	}
	return New(ds.Version, ds.Entries, logger)
}

// New builds a validated snapshot from already decoded entries. Used by both
// the embedded dataset loader and the database-backed guideline source.
func New(version string, list []*domain.GuidelineEntry, logger *logrus.Logger) (*Snapshot, error) {
	if len(list) == 0 {
		return nil, domain.NewMalformedKnowledgeBaseError("", "dataset contains no entries")
	}

	entries := make(map[string]*domain.GuidelineEntry, len(list))
	for _, entry := range list {
		if err := entry.Validate(); err != nil {
			return nil, domain.NewMalformedKnowledgeBaseError(entry.Key(), err.Error())
		}
		if _, exists := entries[entry.Key()]; exists {
			return nil, domain.NewMalformedKnowledgeBaseError(entry.Key(), "duplicate entry key")
		}
		entries[entry.Key()] = entry
	}

	ordered := make([]*domain.GuidelineEntry, 0, len(entries))
	for _, entry := range list {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Key() < ordered[j].Key()
	})

	logger.WithFields(logrus.Fields{
		"dataset_version": version,
		"entry_count":     len(entries),
	}).Info("Guideline knowledge base loaded")

	return &Snapshot{
		version: version,
		entries: entries,
		ordered: ordered,
	}, nil
}

// LoadEmbedded loads the dataset embedded in the binary.
func LoadEmbedded(logger *logrus.Logger) (*Snapshot, error) {
	return LoadFS(guidelineData, DefaultDatasetPath, logger)
}

// LoadFS loads a dataset from a filesystem, for alternate curated datasets.
func LoadFS(fsys fs.FS, path string, logger *logrus.Logger) (*Snapshot, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, domain.NewMalformedKnowledgeBaseError("", fmt.Sprintf("opening dataset %s: %v", path, err))
	}
	defer f.Close()
	return Load(f, logger)
}

// Version returns the dataset version string.
func (s *Snapshot) Version() string {
	return s.version
}

// Lookup returns the guideline entry for the pair. Stage tokens outside the
// cancer type's scheme resolve here too: they have no entry, so they surface
// as an UnknownCombinationError, which callers treat as a supported-coverage
// gap rather than a crash.
func (s *Snapshot) Lookup(cancerType domain.CancerType, stage string) (*domain.GuidelineEntry, error) {
	entry, ok := s.entries[fmt.Sprintf("%s/%s", cancerType, stage)]
	if !ok {
		return nil, domain.NewUnknownCombinationError(cancerType, stage)
	}
	return entry, nil
}

// Entries returns all curated entries in deterministic key order.
func (s *Snapshot) Entries() []*domain.GuidelineEntry {
	out := make([]*domain.GuidelineEntry, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len returns the number of curated entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}
