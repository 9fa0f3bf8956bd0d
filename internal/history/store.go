package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Alias1177/FraudShield/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PersistenceWriteError means the in-memory history changed but the medium did not.
// The session keeps working; the next load will not see the lost write.
type PersistenceWriteError struct {
	Op  string
	Err error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("history %s not persisted: %v", e.Op, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error {
	return e.Err
}

// Store is the newest-first prediction history of one session
type Store struct {
	mu        sync.RWMutex
	records   []models.HistoryRecord
	persister Persister
	logger    zerolog.Logger
}

func NewStore(persister Persister) *Store {
	return &Store{
		persister: persister,
		logger:    log.With().Str("component", "history").Logger(),
	}
}

// NewRecord stamps a classified conversation with an ID and its creation instant
func NewRecord(conversation string, result models.PredictionResult, at time.Time) models.HistoryRecord {
	return models.HistoryRecord{
		ID:           uuid.NewString(),
		Conversation: conversation,
		Result:       result,
		CreatedAt:    at.UTC(),
	}
}

// Load replaces the in-memory history with the persisted one.
// Absent or unreadable state yields an empty history.
func (s *Store) Load(ctx context.Context) []models.HistoryRecord {
	records, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Ignoring unreadable history")
		records = nil
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(records)).Msg("Loaded history")
	return s.All()
}

// Append inserts rec at the head and persists the full sequence.
// A persistence failure keeps the insert and returns *PersistenceWriteError.
func (s *Store) Append(ctx context.Context, rec models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.HistoryRecord, 0, len(s.records)+1)
	next = append(next, rec)
	next = append(next, s.records...)
	s.records = next

	if err := s.persister.Append(ctx, rec, next); err != nil {
		s.logger.Error().Err(err).Str("id", rec.ID).Msg("Failed to persist history")
		return &PersistenceWriteError{Op: "append", Err: err}
	}
	return nil
}

// Clear empties the history and removes its persisted entry
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	if err := s.persister.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to remove persisted history")
		return &PersistenceWriteError{Op: "clear", Err: err}
	}
	return nil
}

// All returns a newest-first copy of the history
func (s *Store) All() []models.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HistoryRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Head returns the newest record
func (s *Store) Head() (models.HistoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return models.HistoryRecord{}, false
	}
	return s.records[0], true
}
