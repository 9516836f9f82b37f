package statestore

import "strings"

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS refine_runs (
  run_id TEXT PRIMARY KEY,
  seed TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  best_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  rounds_done INTEGER NOT NULL DEFAULT 0,
  snapshot JSONB NOT NULL DEFAULT '{}'::jsonb,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refine_runs_status ON refine_runs (status);
`)
	})
	return s.schemaErr
}

func (s *Store) getDB(runID string) (Record, bool) {
	if err := s.ensureSchema(); err != nil {
		return Record{}, false
	}
	id := strings.TrimSpace(runID)
	if id == "" {
		return Record{}, false
	}
	if s.cache != nil {
		if rec, ok := s.cache.Get(id); ok {
			return rec, true
		}
	}
	row := s.db.QueryRow(`SELECT run_id, seed, status, best_score, rounds_done, snapshot, updated_at
FROM refine_runs WHERE run_id = $1`, id)
	var rec Record
	if err := row.Scan(&rec.RunID, &rec.Seed, &rec.Status, &rec.BestScore, &rec.RoundsDone, &rec.Snapshot, &rec.UpdatedAt); err != nil {
		return Record{}, false
	}
	if s.cache != nil {
		s.cache.Add(id, rec)
	}
	return rec, true
}

func (s *Store) putDB(rec Record) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	snapshot := rec.Snapshot
	if len(snapshot) == 0 {
		snapshot = []byte("{}")
	}
	_, err := s.db.Exec(`
INSERT INTO refine_runs (run_id, seed, status, best_score, rounds_done, snapshot, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (run_id)
DO UPDATE SET seed=EXCLUDED.seed,
  status=EXCLUDED.status,
  best_score=EXCLUDED.best_score,
  rounds_done=EXCLUDED.rounds_done,
  snapshot=EXCLUDED.snapshot,
  updated_at=EXCLUDED.updated_at`,
		rec.RunID, rec.Seed, rec.Status, rec.BestScore, rec.RoundsDone, snapshot, rec.UpdatedAt)
	return err
}

func (s *Store) listDB() []Record {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT run_id, seed, status, best_score, rounds_done, snapshot, updated_at
FROM refine_runs ORDER BY updated_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out := make([]Record, 0, 32)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunID, &rec.Seed, &rec.Status, &rec.BestScore, &rec.RoundsDone, &rec.Snapshot, &rec.UpdatedAt); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
