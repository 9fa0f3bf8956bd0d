package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Alias1177/FraudShield/internal/storage"
	"github.com/Alias1177/FraudShield/models"
)

// HistoryKey is the storage key holding the JSON-encoded history
const HistoryKey = "fraudShieldHistory"

// Persister is the durable side of a Store.
// Append receives the new record and the full newest-first sequence it now heads,
// so a backend may write incrementally or rewrite everything.
type Persister interface {
	Load(ctx context.Context) ([]models.HistoryRecord, error)
	Append(ctx context.Context, record models.HistoryRecord, all []models.HistoryRecord) error
	Clear(ctx context.Context) error
}

// KVPersister rewrites the whole sequence under HistoryKey on every append.
// Fine for tens or hundreds of records; it does not scale past that.
type KVPersister struct {
	store storage.Store
	key   string
}

func NewKVPersister(store storage.Store) *KVPersister {
	return &KVPersister{store: store, key: HistoryKey}
}

// Load returns nil when nothing is stored and an error when the stored value is malformed
func (p *KVPersister) Load(ctx context.Context) ([]models.HistoryRecord, error) {
	raw, ok, err := p.store.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.key, err)
	}
	if !ok {
		return nil, nil
	}

	var records []models.HistoryRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p.key, err)
	}
	return records, nil
}

func (p *KVPersister) Append(ctx context.Context, _ models.HistoryRecord, all []models.HistoryRecord) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return p.store.Set(ctx, p.key, string(data))
}

// Clear deletes the key itself rather than storing an empty list
func (p *KVPersister) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, p.key)
}
