package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

// MemoryStore is an in-process Store used by tests and local runs without
// Redis. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]map[string]string
	index []indexEntry
	seq   int64
}

type indexEntry struct {
	id  string
	at  time.Time
	seq int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]map[string]string)}
}

func (s *MemoryStore) Put(ctx context.Context, j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = encode(j)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.jobs[id]
	if !ok {
		return job.Job{}, ErrNotFound
	}
	return decode(id, data), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		data[k] = v
	}
	return nil
}

func (s *MemoryStore) IndexAdd(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.index = append(s.index, indexEntry{id: id, at: at, seq: s.seq})
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]indexEntry, len(s.index))
	copy(entries, s.index)
	sort.Slice(entries, func(i, k int) bool {
		if !entries[i].at.Equal(entries[k].at) {
			return entries[i].at.After(entries[k].at)
		}
		return entries[i].seq > entries[k].seq
	})

	jobs := make([]job.Job, 0, limit)
	for _, e := range entries {
		if len(jobs) == limit {
			break
		}
		if data, ok := s.jobs[e.id]; ok {
			jobs = append(jobs, decode(e.id, data))
		}
	}
	return jobs, nil
}
