// Package statestore persists refinement run state so interrupted runs can
// resume. It keeps a JSON file backend for local use and a Postgres backend
// selected by DSN, with an LRU read cache in front of the database.
package statestore

import (
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Record is one persisted run: the loop snapshot plus enough metadata to
// list and resume runs without decoding the snapshot.
type Record struct {
	RunID      string          `json:"run_id"`
	Seed       string          `json:"seed"`
	Status     string          `json:"status"`
	BestScore  float64         `json:"best_score"`
	RoundsDone int             `json:"rounds_done"`
	Snapshot   json.RawMessage `json:"snapshot"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Run statuses.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Record

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, Record]
}

// New returns a file-backed store rooted at path.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Record),
	}
}

// NewPostgres returns a database-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Record](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// NewFromEnv prefers Postgres when STATE_PG_DSN is set and reachable,
// falling back to the file backend at path.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("STATE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) Get(runID string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	if s.db != nil {
		return s.getDB(runID)
	}
	return s.getFile(runID)
}

func (s *Store) Put(rec Record) error {
	if s == nil {
		return nil
	}
	rec = normalize(rec)
	if rec.RunID == "" {
		return nil
	}
	if s.db != nil {
		err := s.putDB(rec)
		if err == nil && s.cache != nil {
			s.cache.Remove(rec.RunID)
		}
		return err
	}
	return s.putFile(rec)
}

// List returns all runs, newest first.
func (s *Store) List() []Record {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listDB()
	}
	return s.listFile()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalize(rec Record) Record {
	rec.RunID = strings.TrimSpace(rec.RunID)
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return rec
}
