// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
)

// Manager is the Store the application holds. It opens the configured
// engine and forwards every call to it, so a reconnect swaps the engine
// without callers holding a stale handle.
type Manager struct {
	cfg config.DatabaseConfig

	mu    sync.RWMutex
	store Store
}

// NewManager returns an unopened manager.
func NewManager(cfg config.DatabaseConfig) *Manager {
	return &Manager{cfg: cfg}
}

// NewManagerWithStore wraps an already open store.
func NewManagerWithStore(store Store) *Manager {
	return &Manager{store: store, cfg: config.DatabaseConfig{Engine: store.Engine()}}
}

// Open connects the configured engine and creates DefaultIndexes.
func (m *Manager) Open(ctx context.Context) error {
	store, err := m.open(ctx)
	if err != nil {
		return err
	}
	if err := store.EnsureIndexes(ctx, DefaultIndexes); err != nil {
		_ = store.Close(ctx)
		return fmt.Errorf("ensure indexes: %w", err)
	}

	m.mu.Lock()
	prev := m.store
	m.store = store
	m.mu.Unlock()

	if prev != nil {
		if err := prev.Close(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to close previous document store")
		}
	}
	return nil
}

func (m *Manager) open(ctx context.Context) (Store, error) {
	switch m.cfg.Engine {
	case EngineBadger, "":
		return OpenBadger(BadgerOptions{
			Path:     m.cfg.BadgerPath,
			InMemory: m.cfg.InMemory,
		})
	case EngineMongo:
		return OpenMongo(ctx, MongoOptions{
			URI:            m.cfg.MongoURI,
			Database:       m.cfg.MongoDatabase,
			ConnectTimeout: m.cfg.ConnectTimeout,
		})
	}
	return nil, fmt.Errorf("unknown database engine %q", m.cfg.Engine)
}

// Reopen closes the current engine and opens a fresh one.
func (m *Manager) Reopen(ctx context.Context) error {
	logging.Info().Str("engine", m.Engine()).Msg("Reopening document store")
	m.mu.Lock()
	prev := m.store
	m.store = nil
	m.mu.Unlock()
	if prev != nil {
		if err := prev.Close(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to close document store before reopen")
		}
	}
	return m.Open(ctx)
}

func (m *Manager) current() (Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.store == nil {
		return nil, ErrClosed
	}
	return m.store, nil
}

// Unwrap returns the engine currently in use, or nil.
func (m *Manager) Unwrap() Store {
	s, _ := m.current()
	return s
}

// Engine implements Store.
func (m *Manager) Engine() string {
	if s, err := m.current(); err == nil {
		return s.Engine()
	}
	if m.cfg.Engine == "" {
		return EngineBadger
	}
	return m.cfg.Engine
}

// EnsureIndexes implements Store.
func (m *Manager) EnsureIndexes(ctx context.Context, indexes []Index) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.EnsureIndexes(ctx, indexes)
}

// Insert implements Store.
func (m *Manager) Insert(ctx context.Context, collection string, doc models.Document) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.Insert(ctx, collection, doc)
}

// Get implements Store.
func (m *Manager) Get(ctx context.Context, collection, id string, out models.Document) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.Get(ctx, collection, id, out)
}

// Replace implements Store.
func (m *Manager) Replace(ctx context.Context, collection string, doc models.Document) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.Replace(ctx, collection, doc)
}

// Delete implements Store.
func (m *Manager) Delete(ctx context.Context, collection, id string) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.Delete(ctx, collection, id)
}

// Find implements Store.
func (m *Manager) Find(ctx context.Context, collection string, q Query) (Cursor, error) {
	s, err := m.current()
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, collection, q)
}

// Count implements Store.
func (m *Manager) Count(ctx context.Context, collection string, q Query) (int, error) {
	s, err := m.current()
	if err != nil {
		return 0, err
	}
	return s.Count(ctx, collection, q)
}

// Ping implements Store.
func (m *Manager) Ping(ctx context.Context) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// Close implements Store. Closing an unopened manager is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	s := m.store
	m.store = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close(ctx)
}

var _ Store = (*Manager)(nil)
var _ Store = (*BadgerStore)(nil)
var _ Store = (*MongoStore)(nil)
