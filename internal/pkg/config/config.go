package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Vector index backends selectable with VECTOR_BACKEND.
const (
	BackendMemory   = "memory"
	BackendAtlas    = "atlas"
	BackendPGVector = "pgvector"
)

type Config struct {
	Port           string        `env:"PORT,             default=8080"`
	Env            string        `env:"ENV,              default=development"`
	LogLevel       string        `env:"LOG_LEVEL,        default=info"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,        default=30m"`
	PublicLinkBase string        `env:"PUBLIC_LINK_BASE, default=https://personar.world/p"`

	// IdentityAssertionKey is the hex-encoded 32-byte PASETO key shared with
	// the identity provider. Empty disables external signup and login.
	IdentityAssertionKey string `env:"IDENTITY_ASSERTION_KEY"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Vector   VectorConfig
	Postgres PostgresConfig
	Enroll   EnrollConfig
	Webcam   WebcamConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=personar"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED,     default=false"`
	Addr     string        `env:"REDIS_ADDR,        default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,          default=0"`
	CacheTTL time.Duration `env:"PROFILE_CACHE_TTL, default=5m"`
}

type VectorConfig struct {
	Backend       string `env:"VECTOR_BACKEND,        default=memory"`
	NumCandidates int    `env:"VECTOR_NUM_CANDIDATES, default=10"`
	AtlasIndex    string `env:"ATLAS_VECTOR_INDEX,    default=face_vector_index"`
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`
}

type EnrollConfig struct {
	Workers int `env:"ENROLL_WORKERS, default=4"`
}

type WebcamConfig struct {
	Port  string `env:"WEBCAM_PORT,  default=8081"`
	Dir   string `env:"WEBCAM_DIR,   default=./frames"`
	FPS   int    `env:"WEBCAM_FPS,   default=10"`
	Width int    `env:"WEBCAM_WIDTH, default=640"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Vector.Backend {
	case BackendMemory, BackendAtlas:
	case BackendPGVector:
		if c.Postgres.URL == "" {
			return fmt.Errorf("config: POSTGRES_URL is required when VECTOR_BACKEND=%s", BackendPGVector)
		}
	default:
		return fmt.Errorf("config: unknown VECTOR_BACKEND %q", c.Vector.Backend)
	}
	if c.Vector.NumCandidates < 2 {
		return fmt.Errorf("config: VECTOR_NUM_CANDIDATES must be at least 2")
	}
	if c.Enroll.Workers < 1 {
		return fmt.Errorf("config: ENROLL_WORKERS must be positive")
	}
	if c.IdentityAssertionKey != "" {
		key, err := hex.DecodeString(c.IdentityAssertionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("config: IDENTITY_ASSERTION_KEY must be 64 hex characters")
		}
	}
	return nil
}

// ValidateAPI checks the settings only the profile API needs.
func (c *Config) ValidateAPI() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if !c.IsDevelopment() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 bytes outside development")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return loadWith(ctx, envconfig.OsLookuper())
}

func loadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
