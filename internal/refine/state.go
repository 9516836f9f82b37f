package refine

import "encoding/json"

// State is the serializable full state of a loop: enough to persist
// between process invocations and resume where the run left off.
type State struct {
	Seed       string           `json:"seed"`
	Artifact   string           `json:"artifact"`
	Retained   []ScoredArtifact `json:"retained"`
	History    []HistoryEntry   `json:"history"`
	RoundsDone int              `json:"rounds_done"`
}

// Snapshot captures the loop's current state.
func (l *Loop) Snapshot() State {
	return State{
		Seed:       l.seed,
		Artifact:   l.artifact,
		Retained:   l.retained.Entries(),
		History:    l.history.Entries(),
		RoundsDone: l.roundsDone,
	}
}

// Restore replaces the loop's state with a persisted snapshot.
func (l *Loop) Restore(st State) {
	l.seed = st.Seed
	l.artifact = st.Artifact
	l.retained.restore(st.Retained)
	l.history.restore(st.History)
	l.roundsDone = st.RoundsDone
	l.initialized = st.Artifact != "" || st.RoundsDone > 0
}

// EncodeState renders a snapshot as indented JSON.
func EncodeState(st State) ([]byte, error) {
	return json.MarshalIndent(st, "", "  ")
}

// DecodeState parses a persisted snapshot.
func DecodeState(b []byte) (State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, err
	}
	return st, nil
}
