package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig `json:"server"`
	Upload   UploadConfig `json:"upload"`
	Database Database     `json:"database"`
	Redis    RedisConfig  `json:"redis"`
	S3       S3Config     `json:"s3"`
	Queue    QueueConfig  `json:"queue"`
	Sentry   SentryConfig `json:"sentry"`
	LogLevel string       `json:"log_level"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type UploadConfig struct {
	// MaxDeclaredSizeBytes caps the advisory size a client may declare
	// for an upload session. Defaults to 1 GiB when unset.
	MaxDeclaredSizeBytes int64 `json:"max_declared_size_bytes"`
}

const DefaultMaxDeclaredSizeBytes int64 = 1 << 30

func (u UploadConfig) MaxSize() int64 {
	if u.MaxDeclaredSizeBytes > 0 {
		return u.MaxDeclaredSizeBytes
	}
	return DefaultMaxDeclaredSizeBytes
}

type Database struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PoolSize            int           `json:"pool_size"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

type S3Config struct {
	Endpoint    string `json:"endpoint"`
	Region      string `json:"region"`
	BucketName  string `json:"bucket_name"`
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_key"`
}

type QueueConfig struct {
	// StreamPrefix namespaces the per-backend streams, e.g.
	// "converthub:queue" -> "converthub:queue:extraction".
	StreamPrefix string `json:"stream_prefix"`
	MaxLen       int64  `json:"max_len"` // stream max length before trim
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
