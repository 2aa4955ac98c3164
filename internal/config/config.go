package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:""`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	BlobDir        string `envconfig:"BLOB_DIR" default:"./data/blobs"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	SessionSaveOps int    `envconfig:"SESSION_SAVE_OPS" default:"25"`
	AuthRatePerSec int    `envconfig:"AUTH_RATE_PER_SEC" default:"5"`
	AuthRateBurst  int    `envconfig:"AUTH_RATE_BURST" default:"20"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
