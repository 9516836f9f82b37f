package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStoreNewestFirstAndBounded(t *testing.T) {
	m := NewMemoryStore(3, time.Hour)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := m.Publish(ctx, Summary{Topic: "sort", Text: fmt.Sprintf("s%d", i)}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	got, err := m.Query(ctx, "sort", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Text != "s5" || got[2].Text != "s3" {
		t.Fatalf("order wrong: %+v", got)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	m := NewMemoryStore(8, time.Minute)
	clock := time.Now()
	m.now = func() time.Time { return clock }

	ctx := context.Background()
	if err := m.Publish(ctx, Summary{Topic: "t", Text: "old"}); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(2 * time.Minute)
	got, err := m.Query(ctx, "t", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expired entries returned: %+v", got)
	}
}

func TestBridgePublishAndQuery(t *testing.T) {
	m := NewMemoryStore(8, time.Hour)
	b := NewBridge(m, "sorting")
	ctx := context.Background()

	if err := b.Publish(ctx, "insertion sort beats quicksort under n=16"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Publish(ctx, ""); err != nil {
		t.Fatalf("empty publish should be a no-op, got %v", err)
	}

	got, err := b.Query(ctx, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0] != "insertion sort beats quicksort under n=16" {
		t.Fatalf("unexpected summaries: %+v", got)
	}

	if got, _ := b.Query(ctx, "unrelated"); len(got) != 0 {
		t.Fatalf("unrelated topic should be empty: %+v", got)
	}
}
