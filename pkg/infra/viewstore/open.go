package viewstore

import (
	"context"
	"fmt"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/file"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/mongo"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/postgres"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/redis"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Backends lists the valid backend names.
var Backends = []string{BackendMemory, BackendFile, BackendRedis, BackendMongo, BackendPostgres}

// Options selects and configures a backend. Only the fields of the chosen
// backend are read.
type Options struct {
	Backend string

	// Path is the directory of the file backend.
	Path string

	Redis    redis.Options
	Mongo    mongo.Options
	Postgres postgres.Options
}

// Validate checks that the options name a known backend and carry what it
// needs to connect.
func (o Options) Validate() error {
	switch o.Backend {
	case BackendMemory:
	case BackendFile:
		if o.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store path is required for the file backend")
		}
	case BackendRedis:
		if o.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis_addr is required for the redis backend")
		}
	case BackendMongo:
		if o.Mongo.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "mongo_uri is required for the mongo backend")
		}
	case BackendPostgres:
		if o.Postgres.DSN == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "postgres_dsn is required for the postgres backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q (must be one of %v)", o.Backend, Backends)
	}
	return nil
}

// Open connects the configured backend.
func Open(ctx context.Context, opts Options) (viewset.Store, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		s   viewset.Store
		err error
	)
	switch opts.Backend {
	case BackendMemory:
		return viewset.NewMemoryStore(), nil
	case BackendFile:
		s, err = file.New(opts.Path)
	case BackendRedis:
		s, err = redis.New(ctx, opts.Redis)
	case BackendMongo:
		s, err = mongo.New(ctx, opts.Mongo)
	case BackendPostgres:
		s, err = postgres.New(ctx, opts.Postgres)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open %s store", opts.Backend)
	}
	return s, nil
}

// Describe returns a short location string for status output.
func (o Options) Describe() string {
	switch o.Backend {
	case BackendFile:
		return fmt.Sprintf("file %s", o.Path)
	case BackendRedis:
		return fmt.Sprintf("redis %s", o.Redis.Addr)
	case BackendMongo:
		return fmt.Sprintf("mongo %s/%s", o.Mongo.Database, o.Mongo.Collection)
	case BackendPostgres:
		return "postgres"
	default:
		return o.Backend
	}
}
