package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vango-dev/fusion/internal/config"
	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/storage"
)

// openAdapter builds the storage adapter for the configured driver. The
// returned close function releases driver resources and is never nil.
func openAdapter(ctx context.Context, cfg *config.Config) (storage.Adapter, func() error, error) {
	nop := func() error { return nil }

	var adapter storage.Adapter
	closer := nop

	switch cfg.Storage.Driver {
	case config.DriverNone, "":
		return nil, nop, nil

	case config.DriverMemory:
		adapter = storage.NewLocal(storage.NewMemoryBackend())

	case config.DriverDir:
		adapter = storage.NewLocal(storage.NewDirBackend(cfg.StorageDir()))

	case config.DriverS3:
		opts := s3.Options{
			Region:       cfg.Storage.S3.Region,
			UsePathStyle: cfg.Storage.S3.PathStyle,
			Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
		}
		if cfg.Storage.S3.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		var s3opts []storage.S3Option
		if cfg.Storage.S3.Prefix != "" {
			s3opts = append(s3opts, storage.WithS3Prefix(cfg.Storage.S3.Prefix))
		}
		adapter = storage.NewS3(s3.New(opts), cfg.Storage.S3.Bucket, s3opts...)

	case config.DriverSQL:
		dialect, err := cfg.SQLDialect()
		if err != nil {
			return nil, nop, err
		}
		db, err := sql.Open(cfg.Storage.SQL.Driver, cfg.Storage.SQL.DSN)
		if err != nil {
			return nil, nop, fmt.Errorf("open %s database: %w", cfg.Storage.SQL.Driver, err)
		}
		st := storage.NewSQLStore(db,
			storage.WithSQLDialect(dialect),
			storage.WithSQLTableName(cfg.Storage.SQL.Table),
		)
		if err := st.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nop, err
		}
		adapter = storage.NewAsync(st)
		closer = db.Close

	default:
		return nil, nop, errors.New(errors.ConfigInvalid).
			WithDetail("unknown storage driver \"" + cfg.Storage.Driver + "\"")
	}

	return storage.Traced(adapter, storage.WithBackendName(cfg.Storage.Driver)), closer, nil
}

// envCredentials reads static credentials from the standard AWS variables.
func envCredentials(ctx context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the s3 driver")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "fusion-env",
	}, nil
}

// requireAdapter is openAdapter for commands that need persistence.
func requireAdapter(ctx context.Context, cfg *config.Config) (storage.Adapter, func() error, error) {
	adapter, closer, err := openAdapter(ctx, cfg)
	if err != nil {
		return nil, closer, err
	}
	if adapter == nil {
		return nil, closer, errors.New(errors.StorageAdapterMissing).
			WithDetail("Set storage.driver in " + config.ConfigFileName + " to memory, dir, s3 or sql.")
	}
	return adapter, closer, nil
}

func isNotFound(err error) bool {
	return errors.CodeOf(err) == errors.ConfigNotFound
}
