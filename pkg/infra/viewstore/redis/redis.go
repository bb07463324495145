// Package redis stores view sets in Redis.
//
// Each view set is a hash at <prefix>:viewset:<name>; a sorted set at
// <prefix>:viewsets indexes the names by creation time. Commit runs under
// WATCH on the record keys, so a concurrent writer of the same name makes the
// commit fail with viewset.ErrConflict instead of overwriting.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// DefaultPrefix namespaces all keys.
const DefaultPrefix = "sheetbatch"

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is a Redis-backed viewset.Store.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ viewset.Store = (*Store)(nil)

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client. The store owns the client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(name string) string { return s.prefix + ":viewset:" + name }
func (s *Store) index() string          { return s.prefix + ":viewsets" }

// Begin implements viewset.Store.
func (s *Store) Begin(ctx context.Context, name string) (viewset.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tx{store: s}, nil
}

// List implements viewset.Store.
func (s *Store) List(ctx context.Context) ([]viewset.Record, error) {
	names, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list view sets: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(names))
	for i, n := range names {
		cmds[i] = pipe.HGetAll(ctx, s.key(n))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("load view sets: %w", err)
	}

	out := make([]viewset.Record, 0, len(names))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		rec, err := decode(fields)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete implements viewset.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	var del *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(name))
		pipe.ZRem(ctx, s.index(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if del.Val() == 0 {
		return viewset.ErrNotFound
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
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
	s := t.store
	keys := make([]string, len(t.pending))
	for i, r := range t.pending {
		keys[i] = s.key(r.Name)
	}
	if len(keys) == 0 {
		t.done = true
		return nil
	}

	err := s.client.Watch(ctx, func(rtx *goredis.Tx) error {
		n, err := rtx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return viewset.ErrConflict
		}
		_, err = rtx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for _, r := range t.pending {
				fields, err := encode(r)
				if err != nil {
					return err
				}
				pipe.HSet(ctx, s.key(r.Name), fields)
				pipe.ZAdd(ctx, s.index(), goredis.Z{Score: float64(r.CreatedAt.UnixMilli()), Member: r.Name})
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, goredis.TxFailedErr) {
		err = viewset.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("commit view sets: %w", err)
	}
	t.done = true
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.done = true
	t.pending = nil
	return nil
}

func encode(r viewset.Record) (map[string]any, error) {
	ids, err := json.Marshal(r.SheetIDs)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":       r.Name,
		"label":      r.Label,
		"sheet_ids":  string(ids),
		"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decode(f map[string]string) (viewset.Record, error) {
	var ids []host.ElementID
	if err := json.Unmarshal([]byte(f["sheet_ids"]), &ids); err != nil {
		return viewset.Record{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, f["created_at"])
	if err != nil {
		return viewset.Record{}, err
	}
	return viewset.Record{Name: f["name"], Label: f["label"], SheetIDs: ids, CreatedAt: at}, nil
}
