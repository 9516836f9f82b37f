package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps run outputs in process memory; used by tests and runs
// without object storage configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, runID, path string, content []byte) error {
	runID = strings.TrimSpace(runID)
	path = strings.TrimSpace(path)
	if runID == "" {
		return fmt.Errorf("run_id is required")
	}
	if path == "" {
		return fmt.Errorf("path is required")
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	m.mu.Lock()
	m.objects[objectKey(runID, path)] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	m.mu.RLock()
	content, ok := m.objects[objectKey(runID, path)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return content, nil
}

func (m *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	prefix := strings.TrimSpace(runID) + "/"
	m.mu.RLock()
	var paths []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			paths = append(paths, strings.TrimPrefix(key, prefix))
		}
	}
	m.mu.RUnlock()
	sort.Strings(paths)
	return paths, nil
}

func (m *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	// No addressable URLs for in-memory content.
	return "", nil
}
