// Package archive stores run outputs (retained artifacts and manifests)
// in object storage keyed by run ID.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"autoforge/internal/refine"
)

// Store defines operations for persisting run outputs.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	GetURL(ctx context.Context, runID, path string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

var ErrNotFound = errors.New("archive: object not found")

// SaveRetained writes every retained artifact plus a manifest describing
// the set. Artifacts land at retained/<rank>.txt, best first.
func SaveRetained(ctx context.Context, store Store, runID string, entries []refine.ScoredArtifact) error {
	if store == nil {
		return nil
	}
	type manifestEntry struct {
		Rank  int     `json:"rank"`
		Path  string  `json:"path"`
		Score float64 `json:"score"`
		Round int     `json:"round"`
	}
	manifest := make([]manifestEntry, 0, len(entries))
	for i, e := range entries {
		path := fmt.Sprintf("retained/%d.txt", i)
		if err := store.Put(ctx, runID, path, []byte(e.Artifact)); err != nil {
			return fmt.Errorf("archive retained %d: %w", i, err)
		}
		manifest = append(manifest, manifestEntry{Rank: i, Path: path, Score: e.Score, Round: e.Round})
	}
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := store.Put(ctx, runID, "manifest.json", b); err != nil {
		return fmt.Errorf("archive manifest: %w", err)
	}
	return nil
}
