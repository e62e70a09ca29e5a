package service

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/pkg/treatment"
)

// MatcherStats represents verdict cache performance counters.
type MatcherStats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Evaluations int64 `json:"evaluations"`
}

// Matcher compares a proposed treatment against a guideline entry and
// produces an alignment verdict. Verdicts are deterministic over the
// immutable knowledge base, so they are memoized in a small LRU cache keyed
// by entry and normalized treatment.
type Matcher struct {
	synonyms *treatment.SynonymTable
	cache    *lru.Cache
	logger   *logrus.Logger

	stats   MatcherStats
	statsMu sync.RWMutex
}

// NewMatcher creates a matcher. A nil synonym table disables synonym
// resolution and leaves exact-match semantics in place.
func NewMatcher(synonyms *treatment.SynonymTable, cacheSize int, logger *logrus.Logger) (*Matcher, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating verdict cache: %w", err)
	}
	return &Matcher{
		synonyms: synonyms,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Evaluate produces the alignment verdict for a proposed treatment against
// one guideline entry.
//
// The proposed string is normalized and synonym-resolved first, then judged
// by rank: first recommendation means aligned, any later recommendation
// means partially aligned, a treatment the entry knows but does not
// recommend means not aligned, and anything else means not aligned with the
// unrecognized flag set. Case and whitespace variants of the same treatment
// always produce the same verdict.
func (m *Matcher) Evaluate(entry *domain.GuidelineEntry, proposedTreatment string) domain.AlignmentVerdict {
	candidate, _ := m.synonyms.Resolve(proposedTreatment)
	cacheKey := entry.Key() + "|" + treatment.Normalize(candidate)

	if cached, ok := m.cache.Get(cacheKey); ok {
		m.recordHit()
		return cached.(domain.AlignmentVerdict)
	}
	m.recordMiss()

	verdict := m.judge(entry, candidate)
	m.cache.Add(cacheKey, verdict)

	m.logger.WithFields(logrus.Fields{
		"entry_key":            entry.Key(),
		"proposed_treatment":   proposedTreatment,
		"normalized_treatment": verdict.NormalizedTreatment,
		"alignment":            verdict.Alignment.String(),
		"rank":                 verdict.Rank,
		"unrecognized":         verdict.Unrecognized,
	}).Debug("Treatment alignment evaluated")

	return verdict
}

func (m *Matcher) judge(entry *domain.GuidelineEntry, candidate string) domain.AlignmentVerdict {
	// Map the candidate onto the entry's canonical spelling so verdicts and
	// downstream map lookups agree on one name.
	canonical, known := canonicalName(entry, candidate)
	if !known {
		return domain.AlignmentVerdict{
			Alignment:           domain.NOT_ALIGNED,
			NormalizedTreatment: treatment.Normalize(candidate),
			Rank:                -1,
			Unrecognized:        true,
		}
	}

	rank := entry.RecommendationRank(canonical)
	verdict := domain.AlignmentVerdict{
		NormalizedTreatment: canonical,
		Rank:                rank,
	}
	switch {
	case rank == 0:
		verdict.Alignment = domain.ALIGNED
	case rank > 0:
		verdict.Alignment = domain.PARTIALLY_ALIGNED
	default:
		verdict.Alignment = domain.NOT_ALIGNED
	}
	return verdict
}

// canonicalName resolves a candidate to the entry's own spelling of the
// treatment, comparing under normalization.
func canonicalName(entry *domain.GuidelineEntry, candidate string) (string, bool) {
	for _, known := range entry.KnownTreatments {
		if treatment.Equal(known, candidate) {
			return known, true
		}
	}
	return "", false
}

// Stats returns a copy of the matcher's cache counters.
func (m *Matcher) Stats() MatcherStats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats
}

func (m *Matcher) recordHit() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.CacheHits++
	m.stats.Evaluations++
}

func (m *Matcher) recordMiss() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.CacheMisses++
	m.stats.Evaluations++
}
