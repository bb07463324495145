// Package mongo stores view sets in a MongoDB collection.
//
// Names are protected by a unique index, so a duplicate insert fails with a
// duplicate-key error that the store reports as viewset.ErrConflict. A
// transaction holding several records commits them in a session transaction
// (which needs a replica set); a single record is one atomic insert.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
)

// Defaults for Options.
const (
	DefaultDatabase   = "sheetbatch"
	DefaultCollection = "viewsets"
)

// Options configures the connection.
type Options struct {
	URI        string
	Database   string
	Collection string
}

// Store is a MongoDB-backed viewset.Store.
type Store struct {
	client *driver.Client
	coll   *driver.Collection
}

var _ viewset.Store = (*Store)(nil)

// New connects, pings the server and ensures the unique name index.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	client, err := driver.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, coll: client.Database(opts.Database).Collection(opts.Collection)}
	_, err = s.coll.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create name index: %w", err)
	}
	return s, nil
}

// Begin implements viewset.Store.
func (s *Store) Begin(ctx context.Context, name string) (viewset.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tx{store: s}, nil
}

// List implements viewset.Store.
func (s *Store) List(ctx context.Context) ([]viewset.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list view sets: %w", err)
	}
	var out []viewset.Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode view sets: %w", err)
	}
	return out, nil
}

// Delete implements viewset.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return viewset.ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

type tx struct {
	store   *Store
	pending []viewset.Record
	done    bool
}

func (t *tx) Save(ctx context.Context, rec viewset.Record) error {
	if t.done {
		return viewset.ErrTxDone
	}
	t.pending = append(t.pending, rec)
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return viewset.ErrTxDone
	}
	var err error
	switch len(t.pending) {
	case 0:
	case 1:
		_, err = t.store.coll.InsertOne(ctx, t.pending[0])
	default:
		err = t.commitMany(ctx)
	}
	if driver.IsDuplicateKeyError(err) {
		err = viewset.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("commit view sets: %w", err)
	}
	t.done = true
	return nil
}

func (t *tx) commitMany(ctx context.Context) error {
	sess, err := t.store.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	docs := make([]any, len(t.pending))
	for i, r := range t.pending {
		docs[i] = r
	}
	_, err = sess.WithTransaction(ctx, func(sc driver.SessionContext) (any, error) {
		return t.store.coll.InsertMany(sc, docs)
	})
	return err
}

func (t *tx) Rollback(ctx context.Context) error {
	t.done = true
	t.pending = nil
	return nil
}
