package cart

import (
	"context"
	"errors"
	"sync"
)

var errStorageDown = errors.New("storage down")

type stubStorage struct {
	mu      sync.Mutex
	items   map[string]string
	writes  []Snapshot
	getErr  error
	failSet int
	block   chan struct{}
}

func newStubStorage() *stubStorage {
	return &stubStorage{items: make(map[string]string)}
}

func (s *stubStorage) Name() string { return "stub" }

func (s *stubStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *stubStorage) SetItem(ctx context.Context, key, value string) error {
	s.mu.Lock()
	block := s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != 0 {
		if s.failSet > 0 {
			s.failSet--
		}
		return errStorageDown
	}
	s.items[key] = value
	s.writes = append(s.writes, Snapshot{Key: key, Payload: value})
	return nil
}

func (s *stubStorage) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *stubStorage) writeLog() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, len(s.writes))
	copy(out, s.writes)
	return out
}
