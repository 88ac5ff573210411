package session

import (
	"slices"
	"sync"
	"time"

	"github.com/moyoez/batchshare/types"
)

// BatchSession accumulates files for one operator until it is finalized or discarded.
// All methods are safe for concurrent use.
type BatchSession struct {
	mu        sync.Mutex
	batchId   string
	owner     int64
	files     []types.FileRecord
	createdAt time.Time
	deadline  time.Time

	// sealed is set while a finalized snapshot is being persisted; closed once the session
	// has left the store.
	sealed bool
	closed bool
}

// AddResult is the running state after a file was accepted.
type AddResult struct {
	Count     int
	TotalSize int64
}

func newBatchSession(batchId string, owner int64, now time.Time, ttl time.Duration) *BatchSession {
	return &BatchSession{
		batchId:   batchId,
		owner:     owner,
		files:     make([]types.FileRecord, 0),
		createdAt: now,
		deadline:  now.Add(ttl),
	}
}

func (s *BatchSession) BatchID() string      { return s.batchId }
func (s *BatchSession) Owner() int64         { return s.owner }
func (s *BatchSession) CreatedAt() time.Time { return s.createdAt }
func (s *BatchSession) Deadline() time.Time  { return s.deadline }

// IsExpired reports whether now is past the session deadline.
func (s *BatchSession) IsExpired(now time.Time) bool {
	return now.After(s.deadline)
}

// AddFile appends record unless the session expired, is sealed for finalization or was
// already removed from the store.
func (s *BatchSession) AddFile(record types.FileRecord, now time.Time) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return AddResult{}, ErrSessionClosed
	case s.IsExpired(now):
		return AddResult{}, ErrSessionExpired
	case s.sealed:
		return AddResult{}, ErrSessionSealed
	}
	s.files = append(s.files, record)
	return AddResult{Count: len(s.files), TotalSize: types.TotalSize(s.files)}, nil
}

// Finalize snapshots the files into a Batch and seals the session. The caller persists
// the batch and then either ends the session or calls Unseal on failure.
func (s *BatchSession) Finalize() (*types.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, ErrSessionClosed
	case s.sealed:
		return nil, ErrSessionSealed
	case len(s.files) == 0:
		return nil, ErrEmptyBatch
	}
	s.sealed = true
	return &types.Batch{
		BatchID:   s.batchId,
		Owner:     s.owner,
		Files:     slices.Clone(s.files),
		CreatedAt: s.createdAt,
		IsActive:  true,
	}, nil
}

// Unseal reopens a sealed session after its batch could not be persisted.
func (s *BatchSession) Unseal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = false
}

// Cancel marks the session as abandoned; adds racing with it fail with ErrSessionClosed.
// A session sealed by Finalize cannot be cancelled. Removing it from the store is the
// caller's job.
func (s *BatchSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrSessionSealed
	}
	s.closed = true
	return nil
}

// Sealed reports whether a finalized snapshot is currently being persisted.
func (s *BatchSession) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

func (s *BatchSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Files returns a copy of the accumulated files in insertion order.
func (s *BatchSession) Files() []types.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

func (s *BatchSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *BatchSession) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.TotalSize(s.files)
}
