package refine

import (
	"sort"
	"time"
)

// ScoredArtifact pairs a validated artifact with its score. A score exists
// only for artifacts that passed validation.
type ScoredArtifact struct {
	Artifact string    `json:"artifact"`
	Score    float64   `json:"score"`
	Round    int       `json:"round"`
	At       time.Time `json:"at"`
}

// RetainedSet keeps the best scored artifacts seen across all rounds,
// ordered by score descending and bounded to a fixed capacity. When full,
// an insertion evicts the lowest-scored entry; candidates that do not beat
// the current minimum are rejected.
type RetainedSet struct {
	capacity int
	entries  []ScoredArtifact
}

const DefaultRetainCapacity = 5

func NewRetainedSet(capacity int) *RetainedSet {
	if capacity <= 0 {
		capacity = DefaultRetainCapacity
	}
	return &RetainedSet{capacity: capacity}
}

// Insert adds a scored artifact, keeping order and capacity invariants.
// It reports whether the set changed.
func (s *RetainedSet) Insert(a ScoredArtifact) bool {
	if len(s.entries) >= s.capacity {
		min := s.entries[len(s.entries)-1]
		if a.Score <= min.Score {
			return false
		}
		s.entries = s.entries[:len(s.entries)-1]
	}
	// Insert after existing entries with an equal score so earlier
	// artifacts win ties.
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Score < a.Score
	})
	s.entries = append(s.entries, ScoredArtifact{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = a
	return true
}

// Best returns the highest-scored entry.
func (s *RetainedSet) Best() (ScoredArtifact, bool) {
	if len(s.entries) == 0 {
		return ScoredArtifact{}, false
	}
	return s.entries[0], true
}

func (s *RetainedSet) Len() int { return len(s.entries) }

func (s *RetainedSet) Capacity() int { return s.capacity }

// Entries returns a copy ordered by score descending.
func (s *RetainedSet) Entries() []ScoredArtifact {
	out := make([]ScoredArtifact, len(s.entries))
	copy(out, s.entries)
	return out
}

// restore replaces the contents from a persisted snapshot, re-sorting
// defensively in case the snapshot was edited by hand.
func (s *RetainedSet) restore(entries []ScoredArtifact) {
	s.entries = append(s.entries[:0], entries...)
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Score > s.entries[j].Score
	})
	if len(s.entries) > s.capacity {
		s.entries = s.entries[:s.capacity]
	}
}
