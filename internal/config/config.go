package config

import (
	"time"

	"github.com/HMasataka/relay/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig   `json:"server" yaml:"server" envconfig:"SERVER"`
	Relay   RelayConfig    `json:"relay" yaml:"relay" envconfig:"RELAY"`
	Logging logging.Config `json:"logging" yaml:"logging" envconfig:"LOG"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" split_words:"true" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" split_words:"true" validate:"gte=0"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" split_words:"true" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
	AllowedOrigins  []string      `json:"allowed_origins" yaml:"allowed_origins" split_words:"true"`
}

// RelayConfig represents broadcast relay configuration
type RelayConfig struct {
	MaxMediaSize   int64         `json:"max_media_size" yaml:"max_media_size" split_words:"true" validate:"gt=0"`
	MaxFrameSize   int64         `json:"max_frame_size" yaml:"max_frame_size" split_words:"true" validate:"gtfield=MaxMediaSize"`
	SendBufferSize int           `json:"send_buffer_size" yaml:"send_buffer_size" split_words:"true" validate:"gt=0"`
	WriteTimeout   time.Duration `json:"write_timeout" yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	ReadTimeout    time.Duration `json:"read_timeout" yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	PingInterval   time.Duration `json:"ping_interval" yaml:"ping_interval" split_words:"true" validate:"gt=0,ltfield=ReadTimeout"`
	EventBuffer    int           `json:"event_buffer" yaml:"event_buffer" split_words:"true" validate:"gte=0"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Relay: RelayConfig{
			MaxMediaSize:   10 * 1024 * 1024,
			MaxFrameSize:   32 * 1024 * 1024,
			SendBufferSize: 256,
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    60 * time.Second,
			PingInterval:   30 * time.Second,
			EventBuffer:    1024,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fromValidationError(err)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return NewConfigError("logging.level", "unknown log level "+c.Logging.Level)
	}

	if !logging.ValidFormat(c.Logging.Format) {
		return NewConfigError("logging.format", "unknown log format "+c.Logging.Format)
	}

	return nil
}
