package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Moderation ModerationConfig `mapstructure:"moderation"`
}

// Telegram bot configuration
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration
type WebhookConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ListenPort string `mapstructure:"listen_port"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Level     string            `mapstructure:"level"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	Charset    string `mapstructure:"charset"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// moderation engine settings
type ModerationConfig struct {
	MaxWarns        int             `mapstructure:"max_warns"`
	MuteSteps       []time.Duration `mapstructure:"mute_steps"`
	GrowthFactor    float64         `mapstructure:"growth_factor"`
	MaxMuteDuration time.Duration   `mapstructure:"max_mute_duration"`
	CaptchaTimeout  time.Duration   `mapstructure:"captcha_timeout"`
	CaptchaBan      time.Duration   `mapstructure:"captcha_ban"`
	HistoryPageSize int             `mapstructure:"history_page_size"`
	ExpirySweepSpec string          `mapstructure:"expiry_sweep_spec"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

func validate(c *Config) error {
	if c.Moderation.MaxWarns < 1 {
		return fmt.Errorf("moderation.max_warns must be at least 1, got %d", c.Moderation.MaxWarns)
	}
	if len(c.Moderation.MuteSteps) == 0 {
		return fmt.Errorf("moderation.mute_steps must not be empty")
	}
	for i := 1; i < len(c.Moderation.MuteSteps); i++ {
		if c.Moderation.MuteSteps[i] < c.Moderation.MuteSteps[i-1] {
			return fmt.Errorf("moderation.mute_steps must be non-decreasing")
		}
	}
	if c.Moderation.GrowthFactor < 1.0 {
		return fmt.Errorf("moderation.growth_factor must be >= 1.0, got %v", c.Moderation.GrowthFactor)
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "tg-warden.sqlite3")
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("moderation.max_warns", 5)
	v.SetDefault("moderation.mute_steps", []time.Duration{
		time.Hour,
		2*time.Hour + 30*time.Minute,
		4 * time.Hour,
		24 * time.Hour,
		72 * time.Hour,
	})
	v.SetDefault("moderation.growth_factor", 1.2)
	v.SetDefault("moderation.max_mute_duration", 365*24*time.Hour)
	v.SetDefault("moderation.captcha_timeout", 300*time.Second)
	v.SetDefault("moderation.captcha_ban", 24*time.Hour)
	v.SetDefault("moderation.history_page_size", 10)
	v.SetDefault("moderation.expiry_sweep_spec", "*/5 * * * *")
}
