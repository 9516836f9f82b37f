// Package knowledge holds cross-run summaries so that concurrent or later
// refinement loops can consult what other loops learned.
package knowledge

import (
	"context"
	"time"
)

// Summary is one published finding, tagged with the topic it belongs to.
type Summary struct {
	Topic string    `json:"topic"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Store is the persistence surface for summaries. Query returns the most
// recent summaries for a topic, newest first.
type Store interface {
	Publish(ctx context.Context, s Summary) error
	Query(ctx context.Context, topic string, limit int) ([]Summary, error)
}
