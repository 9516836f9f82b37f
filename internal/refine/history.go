package refine

// HistoryEntry records one generation attempt and its outcome. Entries are
// append-only for the lifetime of a run and double as conversational
// context for the generator.
type HistoryEntry struct {
	Round      int     `json:"round"`
	Attempt    int     `json:"attempt"`
	Command    string  `json:"command"`
	OK         bool    `json:"ok"`
	Diagnostic string  `json:"diagnostic,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// RoundHistory is the append-only record of past commands and outcomes.
type RoundHistory struct {
	entries []HistoryEntry
}

func (h *RoundHistory) Append(e HistoryEntry) {
	h.entries = append(h.entries, e)
}

func (h *RoundHistory) Len() int { return len(h.entries) }

// Entries returns a copy of the full history.
func (h *RoundHistory) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Window returns the most recent m entries, bounding prompt size.
func (h *RoundHistory) Window(m int) []HistoryEntry {
	if m <= 0 || len(h.entries) == 0 {
		return nil
	}
	if m > len(h.entries) {
		m = len(h.entries)
	}
	out := make([]HistoryEntry, m)
	copy(out, h.entries[len(h.entries)-m:])
	return out
}

func (h *RoundHistory) restore(entries []HistoryEntry) {
	h.entries = append(h.entries[:0], entries...)
}
