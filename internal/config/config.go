// Package config loads the backend and client settings from defaults, an
// optional taskboard.yaml, a .env file, TASKBOARD_* variables and CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"taskboard/internal/util"
)

// EnvPrefix namespaces the environment variables read by Load.
const EnvPrefix = "TASKBOARD"

// Config is the complete runtime configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Board  BoardConfig  `mapstructure:"board"`
}

// ServerConfig configures the REST backend.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	DBPath      string   `mapstructure:"db_path"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ClientConfig configures the connection to the backend.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BoardConfig tunes the board rules.
type BoardConfig struct {
	GateReopen bool `mapstructure:"gate_reopen"`
}

// DefaultConfig returns the built-in settings. The short legacy variables
// TASKBOARD_ADDR and TASKBOARD_DB_PATH seed the defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:   util.EnvOrDefault("TASKBOARD_ADDR", ":8080"),
			DBPath: util.EnvOrDefault("TASKBOARD_DB_PATH", "data/taskboard.db"),
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8080",
			Timeout: util.EnvDurationOrDefault("TASKBOARD_TIMEOUT", 10*time.Second),
		},
	}
}

// Load reads the configuration into v and decodes it. When file is empty a
// taskboard.yaml in the working directory is used if present. Flags bound to v
// before Load take precedence over every other source.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	def := DefaultConfig()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.db_path", def.Server.DBPath)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("client.base_url", def.Client.BaseURL)
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", def.Client.Timeout)
	v.SetDefault("board.gate_reopen", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("taskboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	return cfg, nil
}

// Validate checks the settings the backend cannot start without.
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("server.jwt_secret must be at least 16 characters")
	}
	return nil
}

// Validate checks the settings a client command needs.
func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("client.base_url is required")
	}
	if c.Token == "" {
		return fmt.Errorf("client.token is required; mint one with `taskboard token`")
	}
	return nil
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
