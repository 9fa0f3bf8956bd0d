// Package storage provides durable key-value storage scoped to one FraudShield origin.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alias1177/FraudShield/internal/config"
	"github.com/Alias1177/FraudShield/internal/database"
)

// Store is a string key-value store. Get reports whether the key exists.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the Store selected by cfg.StorageDriver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(cfg.StorageDriver) {
	case "", "sqlite":
		store, err = openDB(database.NewSQLite(ctx, cfg.SQLitePath))
	case "postgres":
		store, err = openDB(database.New(ctx, database.ConnectionParams{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DBName:   cfg.DB.DBName,
			SSLMode:  cfg.DB.SSLMode,
		}))
	case "redis":
		var r *Redis
		r, err = NewRedis(ctx, RedisOptions{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			store = r
		}
	case "memory":
		store = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.StorageDriver, err)
	}
	return store, nil
}

func openDB(db *database.DB, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return db, nil
}

type scoped struct {
	Store
	prefix string
}

// Scoped namespaces every key of s under prefix. Closing the result does not close s.
func Scoped(s Store, prefix string) Store {
	return &scoped{Store: s, prefix: prefix + ":"}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.Store.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.Store.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.Store.Delete(ctx, s.prefix+key)
}

func (s *scoped) Close() error {
	return nil
}
