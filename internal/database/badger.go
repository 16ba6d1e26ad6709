// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
	"github.com/essence-shop/essence/internal/models"
)

// Key layout:
//
//	d/<collection>/<id>               BSON document
//	u/<collection>/<field>/<value>    id owning a unique value
const (
	prefixDoc    = "d/"
	prefixUnique = "u/"
)

// BadgerOptions configures the embedded engine.
type BadgerOptions struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore is the embedded Store. Documents are BSON encoded, one key per
// document; queries scan the collection prefix and evaluate filters in
// process.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool

	mu     sync.RWMutex
	unique map[string][]string
}

// OpenBadger opens (or creates) a Badger database.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("badger path is required unless in-memory")
		}
		bopts = badger.DefaultOptions(opts.Path)
		bopts.SyncWrites = opts.SyncWrites
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Msg("Badger document store opened")

	return &BadgerStore{db: db, unique: make(map[string][]string)}, nil
}

// OpenBadgerInMemory opens a throwaway in-memory store.
func OpenBadgerInMemory() (*BadgerStore, error) {
	return OpenBadger(BadgerOptions{InMemory: true})
}

func docKey(collection, id string) []byte {
	return []byte(prefixDoc + collection + "/" + id)
}

func docPrefix(collection string) []byte {
	return []byte(prefixDoc + collection + "/")
}

func uniqueKey(collection, field, value string) []byte {
	return []byte(prefixUnique + collection + "/" + field + "/" + value)
}

// Engine implements Store.
func (s *BadgerStore) Engine() string { return EngineBadger }

func (s *BadgerStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *BadgerStore) observe(op, collection string, start time.Time, err error) {
	metrics.RecordDBOperation(EngineBadger, op, collection, time.Since(start), err, IsNotFound)
	if errors.Is(err, ErrConflict) {
		metrics.DBVersionConflicts.WithLabelValues(collection).Inc()
	}
}

// insertAttempts bounds how often Insert runs after a transaction conflict.
const insertAttempts = 3

// mapTxnErr turns Badger's transaction conflict into ErrConflict.
func mapTxnErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return ErrConflict
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	}
	return err
}

// EnsureIndexes registers unique fields and claims the values of documents
// already stored. Non-unique indexes are ignored.
func (s *BadgerStore) EnsureIndexes(ctx context.Context, indexes []Index) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		if err := s.claimExisting(idx.Collection, idx.Field); err != nil {
			return fmt.Errorf("unique index %s.%s: %w", idx.Collection, idx.Field, err)
		}

		s.mu.Lock()
		if !containsString(s.unique[idx.Collection], idx.Field) {
			s.unique[idx.Collection] = append(s.unique[idx.Collection], idx.Field)
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *BadgerStore) claimExisting(collection, field string) error {
	return mapTxnErr(s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix(collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			id := strings.TrimPrefix(string(it.Item().Key()), string(opts.Prefix))
			if err := claimValue(txn, collection, field, id, bson.Raw(raw)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *BadgerStore) uniqueFields(collection string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unique[collection]
}

// uniqueValue is the index key for field in doc. Null and missing values
// are not indexed.
func uniqueValue(doc bson.Raw, field string) (string, bool) {
	vals := lookup(doc, strings.Split(field, "."))
	if len(vals) != 1 || vals[0] == nil {
		return "", false
	}
	if s, ok := vals[0].(string); ok {
		return s, s != ""
	}
	return fmt.Sprint(vals[0]), true
}

func claimValue(txn *badger.Txn, collection, field, id string, doc bson.Raw) error {
	val, ok := uniqueValue(doc, field)
	if !ok {
		return nil
	}
	key := uniqueKey(collection, field, val)
	item, err := txn.Get(key)
	switch {
	case err == nil:
		owner, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(owner) != id {
			return fmt.Errorf("%w: %s=%q", ErrDuplicate, field, val)
		}
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return txn.Set(key, []byte(id))
	default:
		return err
	}
}

// updateUnique moves unique claims from old (nil on insert) to doc (nil on
// delete).
func (s *BadgerStore) updateUnique(txn *badger.Txn, collection, id string, old, doc bson.Raw) error {
	for _, field := range s.uniqueFields(collection) {
		var oldVal, newVal string
		var hadOld, hasNew bool
		if old != nil {
			oldVal, hadOld = uniqueValue(old, field)
		}
		if doc != nil {
			newVal, hasNew = uniqueValue(doc, field)
		}
		if hadOld && hasNew && oldVal == newVal {
			continue
		}
		if hasNew {
			if err := claimValue(txn, collection, field, id, doc); err != nil {
				return err
			}
		}
		if hadOld {
			if err := txn.Delete(uniqueKey(collection, field, oldVal)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Insert implements Store.
func (s *BadgerStore) Insert(ctx context.Context, collection string, doc models.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("insert", collection, start, err) }()

	if err := s.check(ctx); err != nil {
		return err
	}
	id := doc.DocMeta().ID
	if id == "" {
		return fmt.Errorf("insert into %s: document has no id", collection)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}

	insert := func(txn *badger.Txn) error {
		key := docKey(collection, id)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := s.updateUnique(txn, collection, id, nil, raw); err != nil {
			return err
		}
		return txn.Set(key, raw)
	}

	// A conflicting commit may have claimed the same id or unique value.
	// Running again sees that commit and reports ErrDuplicate.
	for attempt := 1; ; attempt++ {
		err = s.db.Update(insert)
		if !errors.Is(err, badger.ErrConflict) || attempt == insertAttempts {
			return mapTxnErr(err)
		}
	}
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, collection, id string, out models.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("get", collection, start, err) }()

	if err := s.check(ctx); err != nil {
		return err
	}
	var raw []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(collection, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return mapTxnErr(err)
	}
	return bson.Unmarshal(raw, out)
}

// Replace implements Store. doc's version must equal the stored version; on
// success it is incremented.
func (s *BadgerStore) Replace(ctx context.Context, collection string, doc models.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("replace", collection, start, err) }()

	if err := s.check(ctx); err != nil {
		return err
	}
	meta := doc.DocMeta()
	expected := meta.Version
	meta.Version = expected + 1
	defer func() {
		if err != nil {
			meta.Version = expected
		}
	}()

	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}

	return mapTxnErr(s.db.Update(func(txn *badger.Txn) error {
		key := docKey(collection, meta.ID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		old, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		stored, _ := bson.Raw(old).Lookup(models.FieldVersion).AsInt64OK()
		if stored != expected {
			return ErrConflict
		}
		if err := s.updateUnique(txn, collection, meta.ID, old, raw); err != nil {
			return err
		}
		return txn.Set(key, raw)
	}))
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, collection, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", collection, start, err) }()

	if err := s.check(ctx); err != nil {
		return err
	}
	return mapTxnErr(s.db.Update(func(txn *badger.Txn) error {
		key := docKey(collection, id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		old, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := s.updateUnique(txn, collection, id, old, nil); err != nil {
			return err
		}
		return txn.Delete(key)
	}))
}

// scan returns every document of collection that matches filters.
func (s *BadgerStore) scan(ctx context.Context, collection string, filters []Filter) ([][]byte, error) {
	var docs [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix(collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if matches(bson.Raw(raw), filters) {
				docs = append(docs, raw)
			}
		}
		return nil
	})
	return docs, mapTxnErr(err)
}

// Find implements Store.
func (s *BadgerStore) Find(ctx context.Context, collection string, q Query) (_ Cursor, err error) {
	start := time.Now()
	defer func() { s.observe("find", collection, start, err) }()

	if err := s.check(ctx); err != nil {
		return nil, err
	}
	docs, err := s.scan(ctx, collection, q.Filters)
	if err != nil {
		return nil, err
	}
	sortDocs(docs, q.Sort, q.Desc)
	return &sliceCursor{docs: window(docs, q.Skip, q.Limit)}, nil
}

// Count implements Store. Skip and Limit are ignored.
func (s *BadgerStore) Count(ctx context.Context, collection string, q Query) (_ int, err error) {
	start := time.Now()
	defer func() { s.observe("count", collection, start, err) }()

	if err := s.check(ctx); err != nil {
		return 0, err
	}
	docs, err := s.scan(ctx, collection, q.Filters)
	return len(docs), err
}

// Ping implements Store.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close implements Store. Closing twice is a no-op.
func (s *BadgerStore) Close(_ context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Badger document store closed")
	return nil
}

// RunGC reclaims value log space until Badger reports nothing to rewrite.
func (s *BadgerStore) RunGC() error {
	if s.closed.Load() {
		return ErrClosed
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// sliceCursor iterates documents already loaded in memory.
type sliceCursor struct {
	docs [][]byte
	pos  int
	cur  []byte
	err  error
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		c.cur = nil
		return false
	}
	c.cur = c.docs[c.pos]
	c.pos++
	return true
}

func (c *sliceCursor) Decode(v any) error {
	if c.cur == nil {
		return errors.New("cursor is not positioned on a document")
	}
	return bson.Unmarshal(c.cur, v)
}

func (c *sliceCursor) Err() error { return c.err }

func (c *sliceCursor) Close(context.Context) error {
	c.docs = nil
	c.cur = nil
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
