// Package mainconfig holds the bootstrap shared by the console and intake
// binaries.
package mainconfig

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/exports"
	"github.com/wolfman30/clinic-portal/internal/storage"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// NewS3Client builds an S3 client, honouring AWS_ENDPOINT_OVERRIDE with
// path-style addressing for LocalStack and MinIO.
func NewS3Client(awsCfg aws.Config, cfg *appconfig.Config) *s3.Client {
	endpoint := strings.TrimSpace(cfg.AWSEndpointOverride)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// BuildStore opens the configured session store. The returned func releases
// its connections.
func BuildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (storage.Store, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() {}

	switch cfg.StorageBackend {
	case "", "file":
		logger.Info("using file store", "path", cfg.StoragePath)
		return storage.NewFileStore(cfg.StoragePath), noop, nil

	case "memory":
		logger.Info("using in-memory store; state is lost on exit")
		return storage.NewMemoryStore(), noop, nil

	case "redis":
		client := BuildRedisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("mainconfig: redis ping: %w", err)
		}
		logger.Info("using redis store", "addr", cfg.RedisAddr)
		return storage.NewRedisStore(client), func() { _ = client.Close() }, nil

	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, noop, fmt.Errorf("mainconfig: DATABASE_URL is required for the postgres store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("mainconfig: connect postgres: %w", err)
		}
		store := storage.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("mainconfig: ensure schema: %w", err)
		}
		logger.Info("using postgres store")
		return store, pool.Close, nil
	}
	return nil, noop, fmt.Errorf("mainconfig: unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}

// BuildRedisClient returns a client for REDIS_ADDR.
func BuildRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// BuildExporter picks the report sink: S3 when EXPORT_S3_BUCKET is set,
// otherwise EXPORT_DIR on disk. An empty EXPORT_DIR disables exports.
func BuildExporter(ctx context.Context, cfg *appconfig.Config, fetcher exports.PDFFetcher, logger *logging.Logger) (*exports.Exporter, error) {
	if bucket := strings.TrimSpace(cfg.ExportS3Bucket); bucket != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
		}
		return exports.NewExporter(fetcher, exports.NewS3Sink(NewS3Client(awsCfg, cfg), bucket, ""), logger), nil
	}
	if dir := strings.TrimSpace(cfg.ExportDir); dir != "" {
		return exports.NewExporter(fetcher, exports.NewDirSink(dir), logger), nil
	}
	return nil, nil
}
