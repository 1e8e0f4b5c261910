package draft

import (
	"context"
	"sync"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

// MemStore is an in-process Store holding a committed baseline and a working
// copy. It backs the local broker and the test suite; it never fails except
// when handed an empty patch.
type MemStore struct {
	mu       sync.Mutex
	baseline pdr.ResourceRecord
	working  pdr.ResourceRecord
	closed   bool
}

// NewMemStore seeds a store whose baseline and working copy both start as
// deep copies of the given record.
func NewMemStore(record pdr.ResourceRecord) *MemStore {
	if record == nil {
		record = pdr.ResourceRecord{}
	}
	return &MemStore{
		baseline: record.Clone(),
		working:  record.Clone(),
	}
}

func (s *MemStore) GetDraftMetadata(ctx context.Context) (pdr.ResourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone(), nil
}

func (s *MemStore) UpdateMetadata(ctx context.Context, patch pdr.ResourceRecord) (pdr.ResourceRecord, error) {
	if len(patch) == 0 {
		return nil, userInputError("UpdateMetadata", "empty patch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range patch {
		s.working[k] = v
	}
	return s.working.Clone(), nil
}

func (s *MemStore) SaveDraft(ctx context.Context) (pdr.ResourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = s.working.Clone()
	return s.working.Clone(), nil
}

func (s *MemStore) DiscardDraft(ctx context.Context) (pdr.ResourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = s.baseline.Clone()
	return s.working.Clone(), nil
}

func (s *MemStore) DoneEditing(ctx context.Context) (pdr.ResourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.working.Clone(), nil
}

// Closed reports whether DoneEditing has been called.
func (s *MemStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
