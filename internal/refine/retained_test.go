package refine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetainedSetOrdersByScoreDescending(t *testing.T) {
	rs := NewRetainedSet(5)
	for _, sc := range []float64{3, 7, 5} {
		require.True(t, rs.Insert(ScoredArtifact{Artifact: "a", Score: sc}))
	}
	entries := rs.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, []float64{7, 5, 3}, []float64{entries[0].Score, entries[1].Score, entries[2].Score})

	best, ok := rs.Best()
	require.True(t, ok)
	require.Equal(t, 7.0, best.Score)
}

func TestRetainedSetBoundedEviction(t *testing.T) {
	rs := NewRetainedSet(2)
	rs.Insert(ScoredArtifact{Artifact: "a", Score: 4})
	rs.Insert(ScoredArtifact{Artifact: "b", Score: 6})
	require.Equal(t, 2, rs.Len())

	// Below the minimum at capacity: set must not change.
	require.False(t, rs.Insert(ScoredArtifact{Artifact: "c", Score: 3}))
	entries := rs.Entries()
	require.Equal(t, "b", entries[0].Artifact)
	require.Equal(t, "a", entries[1].Artifact)

	// Above the minimum: lowest entry is evicted.
	require.True(t, rs.Insert(ScoredArtifact{Artifact: "d", Score: 5}))
	require.Equal(t, 2, rs.Len())
	entries = rs.Entries()
	require.Equal(t, "b", entries[0].Artifact)
	require.Equal(t, "d", entries[1].Artifact)
}

func TestRetainedSetTiesKeepEarlierEntry(t *testing.T) {
	rs := NewRetainedSet(3)
	rs.Insert(ScoredArtifact{Artifact: "first", Score: 5})
	rs.Insert(ScoredArtifact{Artifact: "second", Score: 5})
	best, ok := rs.Best()
	require.True(t, ok)
	require.Equal(t, "first", best.Artifact)
}

func TestRetainedSetRestoreResorts(t *testing.T) {
	rs := NewRetainedSet(2)
	rs.restore([]ScoredArtifact{
		{Artifact: "low", Score: 1},
		{Artifact: "high", Score: 9},
		{Artifact: "mid", Score: 5},
	})
	require.Equal(t, 2, rs.Len())
	best, _ := rs.Best()
	require.Equal(t, "high", best.Artifact)
}
