package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig maps environment variables onto the server configuration.
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	StorageType string `env:"STORAGE_TYPE" env-default:"memory"`
	FSBaseDir   string `env:"STORAGE_FS_DIR" env-default:"var/media"`

	S3Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	S3Bucket          string `env:"AWS_S3_BUCKET" env-default:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	S3UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	S3CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`

	AuthVerifyURL string `env:"AUTH_VERIFY_URL" env-default:""`
	RedisAddr     string `env:"REDIS_ADDR" env-default:""`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisChannel  string `env:"REDIS_CHANNEL" env-default:"media-events"`

	AuthTimeout   time.Duration `env:"AUTH_TIMEOUT" env-default:"5s"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" env-default:"5s"`
}

// WithEnv applies environment variable overrides.
//
// Environment variable mapping:
//
//	PORT, ENVIRONMENT - server basics
//	DATABASE_URL      - empty or "memory" selects the in-memory metadata
//	                    store; a postgres:// URL selects Postgres
//	STORAGE_TYPE      - "memory", "fs" (with STORAGE_FS_DIR) or "s3"
//	                    (with the AWS_* variables)
//	AUTH_VERIFY_URL   - remote authorizer endpoint; empty allows all
//	REDIS_ADDR        - notifier bus address; empty disables publishing
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}

		c.Port = env.Port
		c.Environment = env.Environment

		switch {
		case env.DatabaseURL == "" || env.DatabaseURL == "memory":
			c.DatabaseType = "memory"
			c.DatabaseURL = ""
		case strings.HasPrefix(env.DatabaseURL, "postgres://") || strings.HasPrefix(env.DatabaseURL, "postgresql://"):
			c.DatabaseType = "postgres"
			c.DatabaseURL = env.DatabaseURL
		default:
			return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", env.DatabaseURL)
		}

		c.StorageType = env.StorageType
		c.FSBaseDir = env.FSBaseDir
		c.S3 = S3Config{
			Region:          env.S3Region,
			Bucket:          env.S3Bucket,
			AccessKeyID:     env.S3AccessKeyID,
			SecretAccessKey: env.S3SecretAccessKey,
			Endpoint:        env.S3Endpoint,
			UsePathStyle:    env.S3UsePathStyle,
			CreateBucket:    env.S3CreateBucket,
		}

		c.AuthVerifyURL = env.AuthVerifyURL
		c.RedisAddr = env.RedisAddr
		c.RedisPassword = env.RedisPassword
		c.RedisChannel = env.RedisChannel
		c.AuthTimeout = env.AuthTimeout
		c.NotifyTimeout = env.NotifyTimeout

		return nil
	}
}
