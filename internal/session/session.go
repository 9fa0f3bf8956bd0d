package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Alias1177/FraudShield/internal/config"
	"github.com/Alias1177/FraudShield/internal/export"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/Alias1177/FraudShield/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBusy is returned while another submission of the same session is in flight
	ErrBusy = errors.New("a prediction is already in progress")
	// ErrDiscarded is returned when the form or history was reset while the call was in flight
	ErrDiscarded = errors.New("prediction discarded after reset")
)

// ValidationError rejects input before any network call
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Session ties one user's classifier calls, history and theme together
type Session struct {
	classifier models.Classifier
	history    *history.Store
	prefs      *theme.Prefs
	maxLength  int
	now        func() time.Time
	logger     zerolog.Logger

	mu         sync.Mutex
	inFlight   bool
	generation uint64
}

type Option func(*Session)

func WithMaxLength(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New builds a session. The history is expected to be loaded already.
func New(classifier models.Classifier, hist *history.Store, prefs *theme.Prefs, opts ...Option) *Session {
	s := &Session{
		classifier: classifier,
		history:    hist,
		prefs:      prefs,
		maxLength:  config.DefaultMaxLength,
		now:        time.Now,
		logger:     log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) MaxLength() int {
	return s.maxLength
}

// Validate checks the conversation the way the form does before submitting
func (s *Session) Validate(conversation string) error {
	if conversation == "" {
		return &ValidationError{Message: "Please enter a conversation to check."}
	}
	if utf8.RuneCountInString(conversation) > s.maxLength {
		return &ValidationError{Message: fmt.Sprintf("Conversation exceeds %d characters. Please shorten it.", s.maxLength)}
	}
	return nil
}

// Busy reports whether a submission is outstanding; front ends disable resubmission meanwhile
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Submit classifies the conversation and, on success, puts a new record at the head of the history.
// A *history.PersistenceWriteError comes back together with the record: the result stands for this session.
func (s *Session) Submit(ctx context.Context, conversation string) (models.HistoryRecord, error) {
	if err := s.Validate(conversation); err != nil {
		return models.HistoryRecord{}, err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return models.HistoryRecord{}, ErrBusy
	}
	s.inFlight = true
	generation := s.generation
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	result, err := s.classifier.Submit(ctx, conversation)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Prediction failed")
		return models.HistoryRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		s.logger.Info().Msg("Dropping prediction that finished after a reset")
		return models.HistoryRecord{}, ErrDiscarded
	}

	rec := history.NewRecord(conversation, result, s.now())
	if err := s.history.Append(ctx, rec); err != nil {
		return rec, err
	}

	s.logger.Info().
		Str("id", rec.ID).
		Str("label", rec.Result.Label.String()).
		Float64("confidence", rec.Result.Confidence).
		Msg("Prediction stored")
	return rec, nil
}

// ReadUpload reads a plain-text file whose whole content becomes the conversation
func (s *Session) ReadUpload(r io.Reader) (string, error) {
	// a character is at most 4 bytes, anything past that bound is too long anyway
	limit := int64(s.maxLength)*utf8.UTFMax + 1
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	tooLong := &ValidationError{Message: fmt.Sprintf("File content exceeds %d characters. Please shorten it.", s.maxLength)}
	if int64(len(data)) >= limit {
		return "", tooLong
	}
	if !utf8.Valid(data) {
		return "", &ValidationError{Message: "File is not a plain-text file."}
	}
	// line breaks are stored as \n
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if utf8.RuneCountInString(text) > s.maxLength {
		return "", tooLong
	}
	return text, nil
}

// Reset clears the form; an outstanding prediction will be dropped when it returns
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// ClearHistory empties the history and drops any outstanding prediction
func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	return s.history.Clear(ctx)
}

func (s *Session) History() []models.HistoryRecord {
	return s.history.All()
}

// Export renders the history as CSV, newest first
func (s *Session) Export() []byte {
	return export.ToCSV(s.history.All())
}

// Import appends the records of a CSV export, keeping their relative order
func (s *Session) Import(ctx context.Context, r io.Reader) (int, error) {
	records, err := export.FromCSV(r)
	if err != nil {
		return 0, &ValidationError{Message: fmt.Sprintf("Invalid history file: %v", err)}
	}

	for i, rec := range records {
		if err := s.Validate(rec.Conversation); err != nil {
			return 0, &ValidationError{Message: fmt.Sprintf("Invalid history file: row %d: %v", i+2, err)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// rows are newest first, append oldest first so the newest ends at the head
	for i := len(records) - 1; i >= 0; i-- {
		if err := s.history.Append(ctx, records[i]); err != nil {
			return len(records) - i, err
		}
	}
	return len(records), nil
}

func (s *Session) Theme(ctx context.Context) (theme.Theme, error) {
	return s.prefs.Get(ctx)
}

func (s *Session) SetTheme(ctx context.Context, t theme.Theme) error {
	return s.prefs.Set(ctx, t)
}

func (s *Session) ToggleTheme(ctx context.Context) (theme.Theme, error) {
	return s.prefs.Toggle(ctx)
}
