// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
	"github.com/essence-shop/essence/internal/models"
)

// MongoOptions configures the MongoDB engine.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoStore is the MongoDB Store.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects and pings the primary.
func OpenMongo(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" || opts.Database == "" {
		return nil, errors.New("mongo uri and database are required")
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetAppName("essence").
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	logging.Info().Str("database", opts.Database).Msg("MongoDB document store connected")
	return &MongoStore{client: client, db: client.Database(opts.Database)}, nil
}

// Engine implements Store.
func (s *MongoStore) Engine() string { return EngineMongo }

func (s *MongoStore) observe(op, collection string, start time.Time, err error) {
	metrics.RecordDBOperation(EngineMongo, op, collection, time.Since(start), err, IsNotFound)
	if errors.Is(err, ErrConflict) {
		metrics.DBVersionConflicts.WithLabelValues(collection).Inc()
	}
}

func mapMongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, mongo.ErrClientDisconnected):
		return ErrClosed
	}
	return err
}

// EnsureIndexes implements Store.
func (s *MongoStore) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: idx.Field, Value: 1}},
			Options: options.Index().SetUnique(idx.Unique),
		}
		if _, err := s.db.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index %s.%s: %w", idx.Collection, idx.Field, err)
		}
	}
	return nil
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, collection string, doc models.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("insert", collection, start, err) }()

	if doc.DocMeta().ID == "" {
		return fmt.Errorf("insert into %s: document has no id", collection)
	}
	_, err = s.db.Collection(collection).InsertOne(ctx, doc)
	return mapMongoErr(err)
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, collection, id string, out models.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("get", collection, start, err) }()

	err = s.db.Collection(collection).FindOne(ctx, bson.D{{Key: models.FieldID, Value: id}}).Decode(out)
	return mapMongoErr(err)
}

// Replace implements Store. The filter pins both ID and version, so a
// concurrent writer makes it match nothing.
func (s *MongoStore) Replace(ctx context.Context, collection string, doc models.Document) (err error) {
	start := time.Now()
	defer func() { s.observe("replace", collection, start, err) }()

	meta := doc.DocMeta()
	expected := meta.Version
	meta.Version = expected + 1
	defer func() {
		if err != nil {
			meta.Version = expected
		}
	}()

	coll := s.db.Collection(collection)
	res, err := coll.ReplaceOne(ctx, bson.D{
		{Key: models.FieldID, Value: meta.ID},
		{Key: models.FieldVersion, Value: expected},
	}, doc)
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.D{{Key: models.FieldID, Value: meta.ID}})
	if err != nil {
		return mapMongoErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", collection, start, err) }()

	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: models.FieldID, Value: id}})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Find implements Store. *mongo.Cursor satisfies Cursor.
func (s *MongoStore) Find(ctx context.Context, collection string, q Query) (_ Cursor, err error) {
	start := time.Now()
	defer func() { s.observe("find", collection, start, err) }()

	opts := options.Find().SetSort(mongoSort(q))
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.db.Collection(collection).Find(ctx, mongoFilter(q.Filters), opts)
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return cur, nil
}

// Count implements Store. Skip and Limit are ignored.
func (s *MongoStore) Count(ctx context.Context, collection string, q Query) (_ int, err error) {
	start := time.Now()
	defer func() { s.observe("count", collection, start, err) }()

	n, err := s.db.Collection(collection).CountDocuments(ctx, mongoFilter(q.Filters))
	return int(n), mapMongoErr(err)
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	return mapMongoErr(s.client.Ping(ctx, readpref.Primary()))
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("disconnect MongoDB: %w", err)
	}
	logging.Info().Msg("MongoDB document store disconnected")
	return nil
}

var mongoOps = map[Op]string{
	OpEq:  "$eq",
	OpNe:  "$ne",
	OpIn:  "$in",
	OpGt:  "$gt",
	OpGte: "$gte",
	OpLt:  "$lt",
	OpLte: "$lte",
}

// mongoFilter translates filters into a query document. Several filters are
// combined with $and so two conditions on one field both apply.
func mongoFilter(filters []Filter) bson.D {
	conds := make(bson.A, 0, len(filters))
	for _, f := range filters {
		conds = append(conds, bson.D{{Key: f.Field, Value: mongoCond(f)}})
	}
	switch len(conds) {
	case 0:
		return bson.D{}
	case 1:
		return conds[0].(bson.D)
	}
	return bson.D{{Key: "$and", Value: conds}}
}

func mongoCond(f Filter) bson.D {
	if f.Op == OpContains {
		return bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(fmt.Sprint(f.Value))},
			{Key: "$options", Value: "i"},
		}
	}
	op, ok := mongoOps[f.Op]
	if !ok {
		op = "$eq"
	}
	value := f.Value
	if f.Op == OpIn {
		if vs, ok := value.([]any); ok {
			value = bson.A(vs)
		}
	}
	return bson.D{{Key: op, Value: value}}
}

func mongoSort(q Query) bson.D {
	if q.Sort == "" || q.Sort == models.FieldID {
		dir := 1
		if q.Sort != "" && q.Desc {
			dir = -1
		}
		return bson.D{{Key: models.FieldID, Value: dir}}
	}
	dir := 1
	if q.Desc {
		dir = -1
	}
	return bson.D{{Key: q.Sort, Value: dir}, {Key: models.FieldID, Value: 1}}
}
