package store

import (
	"context"
	"fmt"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg model.StorageConfig, decoder Decoder) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case model.BackendFile:
		s = NewFileStore(cfg.File.Path, decoder)
	case model.BackendSQLite:
		s, err = sqlStore(OpenSQLite(ctx, cfg.SQL.DSN))
	case model.BackendPostgres:
		s, err = sqlStore(OpenPostgres(ctx, cfg.SQL.DSN))
	case model.BackendS3:
		var s3s *S3Store
		if s3s, err = NewS3StoreFromConfig(ctx, cfg.S3, decoder); err == nil {
			s = s3s
		}
	case model.BackendRedis:
		var rs *RedisStore
		if rs, err = NewRedisStoreFromConfig(ctx, cfg.Redis, decoder); err == nil {
			s = rs
		}
	default:
		err = harvesterrors.NewConfigError("storage", fmt.Sprintf("unknown backend %q", cfg.Backend), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return s, nil
}

func sqlStore(s *SQLStore, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
