package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	Port               string        `env:"PORT" default:"2222"`
	MaxClients         int           `env:"MAX_CLIENTS" default:"10"`
	AcceptBacklog      int           `env:"ACCEPT_BACKLOG" default:"16"`
	ClientSendBuffer   int           `env:"CLIENT_SEND_BUFFER" default:"64"`
	ClientWriteTimeout time.Duration `env:"CLIENT_WRITE_TIMEOUT" default:"2s"`
	AcceptRate         float64       `env:"ACCEPT_RATE" default:"0"`
	AcceptBurst        int           `env:"ACCEPT_BURST" default:"5"`

	TickInterval       time.Duration `env:"TICK_INTERVAL" default:"1ms"`
	MaxMessagesPerTick int           `env:"MAX_MESSAGES_PER_TICK" default:"256"`

	ClockSyncEnabled  bool          `env:"CLOCK_SYNC_ENABLED" default:"true"`
	ClockSyncInterval time.Duration `env:"CLOCK_SYNC_INTERVAL" default:"1h"`

	BusInput  string `env:"BUS_INPUT" default:"-"`
	BusOutput string `env:"BUS_OUTPUT"`

	SeaSmartEnabled bool `env:"SEASMART_ENABLED" default:"true"`
	NMEA0183Enabled bool `env:"NMEA0183_ENABLED" default:"true"`

	AdminPort string `env:"ADMIN_PORT" default:"8080"`

	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" default:"n2k:nmea0183"`
	GatewayID    string `env:"GATEWAY_ID"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if cfg.MaxClients < 1 {
		return fmt.Errorf("MAX_CLIENTS must be at least 1, got %d", cfg.MaxClients)
	}
	if cfg.AcceptBacklog < 1 {
		return fmt.Errorf("ACCEPT_BACKLOG must be at least 1, got %d", cfg.AcceptBacklog)
	}
	if cfg.ClientSendBuffer < 1 {
		return fmt.Errorf("CLIENT_SEND_BUFFER must be at least 1, got %d", cfg.ClientSendBuffer)
	}
	if cfg.ClientWriteTimeout <= 0 {
		return errors.New("CLIENT_WRITE_TIMEOUT must be positive")
	}
	if cfg.AcceptRate < 0 {
		return errors.New("ACCEPT_RATE must not be negative")
	}
	if cfg.AcceptRate > 0 && cfg.AcceptBurst < 1 {
		return errors.New("ACCEPT_BURST must be at least 1 when ACCEPT_RATE is set")
	}
	if cfg.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if cfg.MaxMessagesPerTick < 1 {
		return fmt.Errorf("MAX_MESSAGES_PER_TICK must be at least 1, got %d", cfg.MaxMessagesPerTick)
	}
	if cfg.ClockSyncInterval <= 0 {
		return errors.New("CLOCK_SYNC_INTERVAL must be positive")
	}
	if cfg.BusInput == "" {
		return errors.New("BUS_INPUT is required")
	}
	if !cfg.SeaSmartEnabled && !cfg.NMEA0183Enabled {
		return errors.New("at least one of SEASMART_ENABLED, NMEA0183_ENABLED must be true")
	}
	if cfg.RedisURL != "" {
		if cfg.RedisChannel == "" {
			return errors.New("REDIS_CHANNEL is required when REDIS_URL is set")
		}
		if !cfg.NMEA0183Enabled {
			return errors.New("NMEA0183_ENABLED must be true when REDIS_URL is set")
		}
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return nil
}
