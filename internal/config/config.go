package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultStagingDir      = "tmp"
	DefaultUploadURL       = "https://upload.gyazo.com/api/upload"
	DefaultUploadTimeout   = 60
	DefaultDownloadTimeout = 60
	DefaultMaxImageBytes   = 50 * 1024 * 1024
)

type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Discord DiscordConfig `toml:"discord"`
	Gyazo   GyazoConfig   `toml:"gyazo"`
	Staging StagingConfig `toml:"staging"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"`
}

type ServerConfig struct {
	Addr string `toml:"addr" env:"SERVER_ADDR"`
}

type DiscordConfig struct {
	BotToken string `toml:"bot_token" env:"DISCORD_BOT_TOKEN"`
	// ChannelID restricts the bridge to a single channel. Empty monitors all
	// channels the bot can read.
	ChannelID string `toml:"channel_id" env:"DISCORD_CHANNEL_ID"`
}

type GyazoConfig struct {
	AccessToken    string `toml:"access_token" env:"GYAZO_ACCESS_TOKEN"`
	UploadURL      string `toml:"upload_url" env:"GYAZO_UPLOAD_URL"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"GYAZO_TIMEOUT_SECONDS"`
}

func (c GyazoConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultUploadTimeout
	}
	return time.Duration(seconds) * time.Second
}

type StagingConfig struct {
	Dir            string `toml:"dir" env:"STAGING_DIR"`
	MaxBytes       int64  `toml:"max_bytes" env:"STAGING_MAX_BYTES"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"STAGING_TIMEOUT_SECONDS"`
}

func (c StagingConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultDownloadTimeout
	}
	return time.Duration(seconds) * time.Second
}

// Load reads configuration from the TOML file at path, then applies
// environment variable overrides. A missing file is not an error; defaults
// plus the environment are enough to run. Credentials are not validated here,
// a missing token surfaces as an authentication failure at first use.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Gyazo: GyazoConfig{
			UploadURL:      DefaultUploadURL,
			TimeoutSeconds: DefaultUploadTimeout,
		},
		Staging: StagingConfig{
			Dir:            DefaultStagingDir,
			MaxBytes:       DefaultMaxImageBytes,
			TimeoutSeconds: DefaultDownloadTimeout,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
