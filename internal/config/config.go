package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultDataRoot        = "data"
	DefaultAdminAddr       = ":8081"
	DefaultAttemptTimeout  = 300 * time.Second
	DefaultSessionTimeout  = 900 * time.Second
	DefaultMaxImageBytes   = 25 << 20
	DefaultJanitorSchedule = "*/10 * * * *"
	DefaultJanitorMaxAge   = time.Hour
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "embedforge"
	DefaultPGSSLMode       = "disable"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Discord  DiscordConfig  `toml:"discord"`
	Data     DataConfig     `toml:"data"`
	Intake   IntakeConfig   `toml:"intake"`
	Postgres PostgresConfig `toml:"postgres"`
	Admin    AdminConfig    `toml:"admin"`
	Janitor  JanitorConfig  `toml:"janitor"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type DiscordConfig struct {
	Token string `toml:"token" validate:"required"`
	// GuildID scopes slash-command registration to one guild. Empty means
	// global registration.
	GuildID string `toml:"guild_id"`
	AppID   string `toml:"app_id"`
}

type DataConfig struct {
	Root string `toml:"root" validate:"required"`
}

type IntakeConfig struct {
	AttemptTimeout time.Duration `toml:"attempt_timeout" validate:"gt=0"`
	SessionTimeout time.Duration `toml:"session_timeout" validate:"gt=0"`
	MaxImageBytes  int64         `toml:"max_image_bytes" validate:"gt=0"`
}

type PostgresConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type AdminConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Token   string `toml:"token"`
}

type JanitorConfig struct {
	Schedule string        `toml:"schedule"`
	MaxAge   time.Duration `toml:"max_age" validate:"gt=0"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Data: DataConfig{
			Root: DefaultDataRoot,
		},
		Intake: IntakeConfig{
			AttemptTimeout: DefaultAttemptTimeout,
			SessionTimeout: DefaultSessionTimeout,
			MaxImageBytes:  DefaultMaxImageBytes,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Admin: AdminConfig{
			Addr: DefaultAdminAddr,
		},
		Janitor: JanitorConfig{
			Schedule: DefaultJanitorSchedule,
			MaxAge:   DefaultJanitorMaxAge,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the loaded config for values the process cannot run
// without. Defaults from Load pass everything except the Discord token.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Admin.Enabled && c.Admin.Token == "" {
		return fmt.Errorf("invalid config: admin api enabled without a token")
	}
	return nil
}
