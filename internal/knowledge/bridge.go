package knowledge

import "context"

// Bridge adapts a Store to the single-topic interface the refinement loop
// consumes. Each loop is bound to one topic at construction.
type Bridge struct {
	Store Store
	Topic string
	Limit int // max summaries handed to the loop per query, default 8
}

func NewBridge(store Store, topic string) *Bridge {
	return &Bridge{Store: store, Topic: topic, Limit: 8}
}

func (b *Bridge) Publish(ctx context.Context, summary string) error {
	if summary == "" {
		return nil
	}
	return b.Store.Publish(ctx, Summary{Topic: b.Topic, Text: summary})
}

func (b *Bridge) Query(ctx context.Context, topic string) ([]string, error) {
	if topic == "" {
		topic = b.Topic
	}
	limit := b.Limit
	if limit <= 0 {
		limit = 8
	}
	sums, err := b.Store.Query(ctx, topic, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sums))
	for _, s := range sums {
		out = append(out, s.Text)
	}
	return out, nil
}
