package scan

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

var (
	ErrTaskNotFound = errors.New("scan task not found")
	ErrTaskFinal    = errors.New("scan task already finished")
)

// Store is the task registry shared by every scan. Each task has a single
// writer: the scan that created it.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, id string, u Update) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
}

// CacheStore keeps tasks in memory and evicts them once they have not been
// written for the retention window.
type CacheStore struct {
	mu     sync.Mutex
	cache  *bigcache.BigCache
	now    func() time.Time
	logger *zap.Logger
}

func NewCacheStore(ctx context.Context, retention time.Duration, logger *zap.Logger) (*CacheStore, error) {
	cfg := bigcache.DefaultConfig(retention)
	cfg.Shards = 64
	cfg.CleanWindow = time.Minute
	if retention < cfg.CleanWindow {
		cfg.CleanWindow = retention
	}
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 64 * 1024
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating task cache: %w", err)
	}
	return &CacheStore{
		cache:  cache,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (s *CacheStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	return s.put(t)
}

// Update applies u to the task. Progress never moves backwards, and a
// finished task rejects every change with ErrTaskFinal.
func (s *CacheStore) Update(_ context.Context, id string, u Update) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if t.Status.Final() {
		return nil, ErrTaskFinal
	}

	if u.Status != "" {
		t.Status = u.Status
	}
	if u.Progress != nil && *u.Progress > t.Progress {
		t.Progress = min(*u.Progress, 100)
	}
	if u.Results != nil {
		t.Results = u.Results
	}
	if u.Summary != nil {
		t.Summary = u.Summary
	}
	if u.Error != "" {
		t.Error = u.Error
	}
	t.UpdatedAt = s.now()

	if err := s.put(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *CacheStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *CacheStore) Close() error {
	return s.cache.Close()
}

func (s *CacheStore) get(id string) (*Task, error) {
	data, err := s.cache.Get(id)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading task %s: %w", id, err)
	}

	var t Task
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", id, err)
	}
	return &t, nil
}

// put encodes with gob, which round-trips NaN and Inf unlike JSON.
func (s *CacheStore) put(t *Task) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return fmt.Errorf("encoding task %s: %w", t.ID, err)
	}
	if err := s.cache.Set(t.ID, buf.Bytes()); err != nil {
		return fmt.Errorf("storing task %s: %w", t.ID, err)
	}
	s.logger.Debug("task stored",
		zap.String("task_id", t.ID),
		zap.String("status", string(t.Status)),
		zap.Int("progress", t.Progress),
		zap.Int("bytes", buf.Len()),
	)
	return nil
}
