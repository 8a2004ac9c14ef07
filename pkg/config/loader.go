// Package config loads env-tagged structs from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into cfg, which must be a pointer to a
// struct carrying `env` tags:
//
//	type Config struct {
//	    MongoURL          string        `env:"MONGO_URL,required"`
//	    AccessTokenExpiry time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
//	    KafkaBrokers      []string      `env:"KAFKA_BROKERS"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
