package refine

import "math/rand"

// Selection decides which retained entry seeds the next round. The source
// systems disagreed on best-only vs. random-among-best, so the policy is
// pluggable rather than fixed.
type Selection interface {
	Pick(rs *RetainedSet) (ScoredArtifact, bool)
}

// BestOnly always extends the single best artifact.
type BestOnly struct{}

func (BestOnly) Pick(rs *RetainedSet) (ScoredArtifact, bool) { return rs.Best() }

// Explore extends the best artifact most of the time but, with probability
// Epsilon, seeds the next round from a uniformly random retained entry to
// preserve diversity.
type Explore struct {
	Epsilon float64
	Rand    *rand.Rand // nil uses the global source
}

func (e Explore) Pick(rs *RetainedSet) (ScoredArtifact, bool) {
	if rs.Len() == 0 {
		return ScoredArtifact{}, false
	}
	roll := rand.Float64
	intn := rand.Intn
	if e.Rand != nil {
		roll = e.Rand.Float64
		intn = e.Rand.Intn
	}
	if e.Epsilon > 0 && roll() < e.Epsilon {
		entries := rs.Entries()
		return entries[intn(len(entries))], true
	}
	return rs.Best()
}
