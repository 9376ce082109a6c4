package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
// dispatchd reads Server, Database, Push, WorkerPool and Dispatch;
// alarmd reads Device, Audio, Alert and Widget. Log is shared.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Log        LogConfig        `yaml:"log"`

	Device DeviceConfig `yaml:"device"`
	Audio  AudioConfig  `yaml:"audio"`
	Alert  AlertConfig  `yaml:"alert"`
	Widget WidgetConfig `yaml:"widget"`
}

// WorkerPoolConfig holds the configuration for the dispatch worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys and fan-out limits for web push delivery.
type PushConfig struct {
	PublicKey          string        `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	PrivateKey         string        `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	Subject            string        `yaml:"subject"`
	TTL                int           `yaml:"ttl"`
	Urgency            string        `yaml:"urgency"`
	Concurrency        int           `yaml:"concurrency"`
	RatePerSec         float64       `yaml:"rate_per_sec"`
	SendTimeoutSeconds int           `yaml:"send_timeout_seconds"`
	SendTimeout        time.Duration `yaml:"-"`
}

// ServerConfig holds the dispatch server's HTTP configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	AdminAPIKey     string  `yaml:"admin_api_key" env:"ADMIN_API_KEY"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// DispatchConfig controls the recurring dispatch pass.
type DispatchConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Schedule          string `yaml:"schedule"`
	ReminderTitle     string `yaml:"reminder_title"`
	ReminderBody      string `yaml:"reminder_body"`
	AdminDefaultTitle string `yaml:"admin_default_title"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format"`
}

// DeviceConfig holds the alarm daemon's local API settings.
type DeviceConfig struct {
	Listen string `yaml:"listen"`
}

// AudioConfig describes the call-to-prayer assets and the player command.
type AudioConfig struct {
	Dir          string   `yaml:"dir"`
	FajrAsset    string   `yaml:"fajr_asset"`
	DefaultAsset string   `yaml:"default_asset"`
	DefaultTone  string   `yaml:"default_tone"`
	Command      []string `yaml:"command"`
}

// AlertConfig describes the visible alert posted on each firing.
type AlertConfig struct {
	AppName       string `yaml:"app_name"`
	Icon          string `yaml:"icon"`
	TitleFormat   string `yaml:"title_format"`
	ExpireSeconds int    `yaml:"expire_seconds"`
}

// WidgetConfig locates the display sync store.
type WidgetConfig struct {
	Path string `yaml:"path"`
}

// Load reads the configuration from the given path and applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment overrides: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Push.Urgency == "" {
		cfg.Push.Urgency = "high"
	}
	if cfg.Push.Concurrency <= 0 {
		cfg.Push.Concurrency = 8
	}
	if cfg.Push.RatePerSec <= 0 {
		cfg.Push.RatePerSec = 50
	}
	if cfg.Push.SendTimeoutSeconds <= 0 {
		cfg.Push.SendTimeoutSeconds = 30
	}
	cfg.Push.SendTimeout = time.Duration(cfg.Push.SendTimeoutSeconds) * time.Second

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Dispatch.Schedule == "" {
		cfg.Dispatch.Schedule = "@every 1m"
	}
	if cfg.Dispatch.ReminderTitle == "" {
		cfg.Dispatch.ReminderTitle = "Live Event Scheduled!"
	}
	if cfg.Dispatch.ReminderBody == "" {
		cfg.Dispatch.ReminderBody = "Join the live event now!"
	}
	if cfg.Dispatch.AdminDefaultTitle == "" {
		cfg.Dispatch.AdminDefaultTitle = "Notification"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Device.Listen == "" {
		cfg.Device.Listen = "127.0.0.1:8765"
	}

	if cfg.Audio.FajrAsset == "" {
		cfg.Audio.FajrAsset = "azan_fajr.ogg"
	}
	if cfg.Audio.DefaultAsset == "" {
		cfg.Audio.DefaultAsset = "azan.ogg"
	}
	if cfg.Audio.DefaultTone == "" {
		cfg.Audio.DefaultTone = "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga"
	}
	if len(cfg.Audio.Command) == 0 {
		cfg.Audio.Command = []string{"paplay", "--property=media.role=alarm", "--volume={volume}", "{file}"}
	}

	if cfg.Alert.AppName == "" {
		cfg.Alert.AppName = "Prayer Times"
	}
	if cfg.Alert.TitleFormat == "" {
		cfg.Alert.TitleFormat = "Telah masuk waktu solat %s"
	}
	if cfg.Alert.ExpireSeconds <= 0 {
		cfg.Alert.ExpireSeconds = 60
	}

	if cfg.Widget.Path == "" {
		cfg.Widget.Path = "./widget_prefs.yaml"
	}
}
