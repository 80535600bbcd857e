package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-media/pkg/mediastore"
	"github.com/tendant/simple-media/pkg/mediastore/auth/httpauth"
	"github.com/tendant/simple-media/pkg/mediastore/notify/redisnotify"
	repomemory "github.com/tendant/simple-media/pkg/mediastore/repo/memory"
	repopg "github.com/tendant/simple-media/pkg/mediastore/repo/postgres"
	fsstorage "github.com/tendant/simple-media/pkg/mediastore/storage/fs"
	memorystorage "github.com/tendant/simple-media/pkg/mediastore/storage/memory"
	s3storage "github.com/tendant/simple-media/pkg/mediastore/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:          "8080",
		Environment:   "development",
		DatabaseType:  "memory",
		StorageType:   "memory",
		AuthTimeout:   5 * time.Second,
		NotifyTimeout: 5 * time.Second,
	}
}

// ServerConfig represents server configuration for the simple-media service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Metadata store configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Content store configuration
	StorageType string // "memory", "fs", "s3"
	FSBaseDir   string
	S3          S3Config

	// External collaborators; empty values select the in-process
	// fallbacks (allow-all authorizer, noop notifier)
	AuthVerifyURL string
	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	AuthTimeout   time.Duration
	NotifyTimeout time.Duration
}

// S3Config represents configuration for the S3 content store
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	CreateBucket    bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("fs base directory is required when using fs storage")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return errors.New("storage_type must be 'memory', 'fs' or 's3'")
	}

	return nil
}

// BuildService wires a mediastore.Service from the configuration. The
// returned cleanup func releases pooled connections and must be called on
// shutdown.
func (c *ServerConfig) BuildService(ctx context.Context, log *slog.Logger) (mediastore.Service, func(), error) {
	cleanup := func() {}

	metadata, metaCleanup, err := c.buildMetadataStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup = metaCleanup

	content, err := c.buildContentStore()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	options := []mediastore.Option{
		mediastore.WithContentStore(content),
		mediastore.WithMetadataStore(metadata),
		mediastore.WithLogger(log),
		mediastore.WithAuthTimeout(c.AuthTimeout),
		mediastore.WithNotifyTimeout(c.NotifyTimeout),
	}

	if c.AuthVerifyURL != "" {
		authorizer, err := httpauth.New(httpauth.Config{
			VerifyURL: c.AuthVerifyURL,
			Timeout:   c.AuthTimeout,
		}, nil)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("build authorizer: %w", err)
		}
		options = append(options, mediastore.WithAuthorizer(authorizer))
	}

	if c.RedisAddr != "" {
		notifier, err := redisnotify.New(redisnotify.Config{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			Channel:  c.RedisChannel,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("build notifier: %w", err)
		}
		prev := cleanup
		cleanup = func() {
			notifier.Close()
			prev()
		}
		options = append(options, mediastore.WithNotifier(notifier))
	} else if c.Environment == "development" {
		options = append(options, mediastore.WithNotifier(mediastore.NewLoggingNotifier(log)))
	}

	svc, err := mediastore.New(options...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

func (c *ServerConfig) buildMetadataStore(ctx context.Context) (mediastore.MetadataStore, func(), error) {
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	default:
		return repomemory.New(), func() {}, nil
	}
}

func (c *ServerConfig) buildContentStore() (mediastore.ContentStore, error) {
	switch c.StorageType {
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.FSBaseDir})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
	default:
		return memorystorage.New(), nil
	}
}
