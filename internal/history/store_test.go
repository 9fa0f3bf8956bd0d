package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alias1177/FraudShield/internal/storage"
	"github.com/Alias1177/FraudShield/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fraudResult = models.PredictionResult{
	Label:        models.LabelFraud,
	Confidence:   91.23,
	FraudProb:    91.23,
	NotFraudProb: 8.77,
}

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	s := NewStore(NewKVPersister(mem))
	s.Load(context.Background())
	return s, mem
}

func TestAppendInsertsAtHead(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := NewRecord("first", fraudResult, base)
	second := NewRecord("second", fraudResult, base.Add(time.Minute))

	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Conversation)
	assert.Equal(t, "first", all[1].Conversation)

	head, ok := s.Head()
	require.True(t, ok)
	assert.Equal(t, second.ID, head.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPersistedEqualsMemoryAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	for i, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, NewRecord(text, fraudResult, time.Unix(int64(i), 0))))

		reloaded := NewStore(NewKVPersister(mem)).Load(ctx)
		assert.Equal(t, s.All(), reloaded)
	}
}

func TestClearDeletesPersistedKey(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	require.NoError(t, s.Append(ctx, NewRecord("x", fraudResult, time.Now())))

	require.NoError(t, s.Clear(ctx))

	assert.Empty(t, s.All())
	assert.Zero(t, s.Len())
	_, ok, err := mem.Get(ctx, HistoryKey)
	require.NoError(t, err)
	assert.False(t, ok, "history key must be absent, not an empty list")

	_, ok = s.Head()
	assert.False(t, ok)
}

func TestLoadFailsSoft(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		value *string
	}{
		{name: "absent"},
		{name: "malformed", value: ptr("{not json")},
		{name: "wrong shape", value: ptr(`{"conversation":"x"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemory()
			if tt.value != nil {
				require.NoError(t, mem.Set(ctx, HistoryKey, *tt.value))
			}
			records := NewStore(NewKVPersister(mem)).Load(ctx)
			assert.Empty(t, records)
		})
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	require.NoError(t, s.Append(ctx, NewRecord("one", fraudResult, time.Unix(10, 0))))
	require.NoError(t, s.Append(ctx, NewRecord("two", fraudResult, time.Unix(20, 0))))

	before := NewStore(NewKVPersister(mem)).Load(ctx)
	after := NewStore(NewKVPersister(mem)).Load(ctx)
	assert.Equal(t, before, after)
	assert.Equal(t, s.All(), after)
}

func TestAppendKeepsMemoryOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	mem.FailWrites = errors.New("quota exceeded")

	err := s.Append(ctx, NewRecord("kept", fraudResult, time.Now()))

	var writeErr *PersistenceWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "append", writeErr.Op)
	assert.Len(t, s.All(), 1)

	reloaded := NewStore(NewKVPersister(mem)).Load(ctx)
	assert.Empty(t, reloaded)
}

func TestAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Append(ctx, NewRecord("original", fraudResult, time.Now())))

	all := s.All()
	all[0].Conversation = "mutated"

	head, _ := s.Head()
	assert.Equal(t, "original", head.Conversation)
}

func ptr(s string) *string {
	return &s
}
