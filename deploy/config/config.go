package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Storage    Storage
	HTTPServer HTTPServer
	RateAPI    RateAPI
	Updater    Updater
	Discord    Discord
	Redis      Redis
}

type Storage struct {
	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST" env-required:"true"`
	Port     int           `env:"BD_PORT" env-required:"true"`
	User     string        `env:"BD_USER" env-required:"true"`
	Password string        `env:"BD_PASSWORD" env-required:"true"`
	DBName   string        `env:"BD_DBNAME" env-required:"true"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
	Schema   string        `env:"BD_SCHEMA" env-default:"public"`
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type RateAPI struct {
	URL     string        `env:"RATE_API_URL" env-required:"true"`
	Key     string        `env:"RATE_API_KEY"`
	Field   string        `env:"RATE_API_FIELD" env-default:"info.rate"`
	Timeout time.Duration `env:"RATE_API_TIMEOUT" env-default:"10s"`
}

type Updater struct {
	Interval    time.Duration `env:"UPDATE_INTERVAL" env-default:"50s"`
	LabelFormat string        `env:"LABEL_FORMAT" env-default:"$ %s %s"`
}

type Discord struct {
	Token        string        `env:"DISCORD_TOKEN_ID"`
	APIURL       string        `env:"DISCORD_API_URL" env-default:"https://discord.com/api/v10"`
	GatewayURL   string        `env:"DISCORD_GATEWAY_URL" env-default:"wss://gateway.discord.gg/?v=10&encoding=json"`
	CustomStatus string        `env:"DISCORD_CUSTOM_STATUS" env-default:"Discord.gg/Eternull"`
	Timeout      time.Duration `env:"DISCORD_TIMEOUT" env-default:"10s"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"rate_updated"`
}

func NewConfig() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Error reading env: %v", err)
	}

	return cfg
}

func Load() (*Config, error) {
	const op = "config.Load"

	cfg := &Config{}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, op)
	}

	if cfg.Updater.Interval <= 0 {
		return nil, errors.Errorf("%s: UPDATE_INTERVAL must be positive, got %s", op, cfg.Updater.Interval)
	}

	return cfg, nil
}

// DSN builds the key/value connection string understood by pgx.
func (s Storage) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		s.Host,
		s.Port,
		s.User,
		s.Password,
		s.DBName,
		s.SSLMode,
		s.Schema,
	)
}

// PublishEnabled reports whether a chat session can be opened at all.
func (d Discord) PublishEnabled() bool {
	return d.Token != ""
}

func (r Redis) Enabled() bool {
	return r.Addr != ""
}
