package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug         bool     `envconfig:"debug"`
	Port          int      `envconfig:"port" default:"8080"`
	DatabasePath  string   `envconfig:"database_path" default:"messaging.db"`
	JWTSecret     string   `envconfig:"jwt_secret" required:"true"`
	TokenTTLHours int      `envconfig:"token_ttl_hours" default:"72"`
	AllowedOrigin string   `envconfig:"allowed_origin"`
	ReadTimeout   int64    `envconfig:"read_timeout" default:"15"`
	WriteTimeout  int64    `envconfig:"write_timeout" default:"15"`
	RelayBind     string   `envconfig:"relay_bind"`
	RelayPeers    []string `envconfig:"relay_peers"`
}

func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	if err := envconfig.Process("skygear", c); err != nil {
		return nil, err
	}
	return c, nil
}
