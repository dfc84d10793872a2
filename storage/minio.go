package storage

import (
	"context"
	"fmt"
	"time"

	"fader/config"
	"fader/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var defaultStore *MinioStore

// InitMinio connects to the MinIO endpoint, ensures the bucket exists and
// installs the default object store.
func InitMinio(cfg *config.Config) error {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	}

	client, err := minio.New(cfg.MinioEndpoint, opts)
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	// Core exposes the low-level multipart API used for presigned part
	// uploads; it shares the client's credentials and transport.
	core, err := minio.NewCore(cfg.MinioEndpoint, opts)
	if err != nil {
		return fmt.Errorf("failed to create minio core client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	defaultStore = &MinioStore{
		client: client,
		core:   core,
		bucket: cfg.MinioBucket,
	}
	return nil
}

// DefaultObjectStore returns the store installed by InitMinio.
func DefaultObjectStore() *MinioStore {
	return defaultStore
}
