package refine

// EventType labels loop progress notifications.
type EventType string

const (
	EventInit      EventType = "init"
	EventRound     EventType = "round"
	EventRepair    EventType = "repair"
	EventScore     EventType = "score"
	EventRoundFail EventType = "round_failed"
	EventComplete  EventType = "complete"
	EventTransport EventType = "transport_error"
	EventCancelled EventType = "cancelled"
)

// Event is one progress notification emitted by the loop. Consumers must
// not block; the loop emits synchronously.
type Event struct {
	Type    EventType `json:"type"`
	Round   int       `json:"round"`
	Attempt int       `json:"attempt,omitempty"`
	Score   float64   `json:"score,omitempty"`
	Message string    `json:"message,omitempty"`
}
