package store

import (
	"context"
	"fmt"

	"github.com/kuitang/quicknotes/internal/config"
	"github.com/kuitang/quicknotes/internal/db"
	"github.com/kuitang/quicknotes/internal/mongodb"
	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/s3client"
)

// New returns a connector for the configured backend. Nothing is dialed
// until the first Connect.
func New(cfg config.StoreConfig) (*Connector, error) {
	dial, err := dialerFor(cfg)
	if err != nil {
		return nil, err
	}
	return NewConnector(cfg.Backend, dial, WithDialTimeout(cfg.ConnectTimeout)), nil
}

func dialerFor(cfg config.StoreConfig) (DialFunc, error) {
	switch cfg.Backend {
	case config.BackendMongo, "":
		return func(ctx context.Context) (notes.Store, error) {
			return mongodb.Open(ctx, mongodb.Config{
				URI:            cfg.MongoURI,
				Database:       cfg.MongoDatabase,
				Collection:     cfg.MongoCollection,
				ConnectTimeout: cfg.ConnectTimeout,
			})
		}, nil

	case config.BackendSQLite:
		key, err := cfg.SQLiteKey()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (notes.Store, error) {
			return db.Open(ctx, db.Config{Path: cfg.DatabasePath, Key: key})
		}, nil

	case config.BackendS3:
		return func(ctx context.Context) (notes.Store, error) {
			client, err := s3client.New(ctx, s3client.Config{
				Endpoint:        cfg.S3Endpoint,
				Region:          cfg.S3Region,
				AccessKeyID:     cfg.S3AccessKeyID,
				SecretAccessKey: cfg.S3SecretAccessKey,
				BucketName:      cfg.S3Bucket,
				UsePathStyle:    cfg.S3Endpoint != "",
			})
			if err != nil {
				return nil, err
			}
			s := s3client.NewNoteStore(client, cfg.S3Prefix)
			if err := s.Ping(ctx); err != nil {
				return nil, err
			}
			return s, nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
