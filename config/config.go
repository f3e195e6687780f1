package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config конфигурация приложения
type Config struct {
	Server struct {
		Port        string `yaml:"port"`
		CORSOrigins string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		URL        string `yaml:"url"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Logging struct {
		Mode string `yaml:"mode"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		Exporter    string  `yaml:"exporter"` // stdout | otlp
		Endpoint    string  `yaml:"endpoint"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`

	Gamification Gamification `yaml:"gamification"`
}

// Gamification параметры движка достижений и аналитики
type Gamification struct {
	CatalogPath          string        `yaml:"catalog_path"`
	Timezone             string        `yaml:"timezone"`
	ActivityLookbackDays int           `yaml:"activity_lookback_days"`
	UnlockWorkers        int           `yaml:"unlock_workers"`
	LockTTL              time.Duration `yaml:"lock_ttl"`
	RecommendationLimit  int           `yaml:"recommendation_limit"`
	PredictionWindowDays int           `yaml:"prediction_window_days"`
}

// Location возвращает часовой пояс для календарных дней
func (g Gamification) Location() *time.Location {
	if g.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Default конфигурация по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = "http://localhost:3000"
	cfg.Database.SQLitePath = "goalquest.db"
	cfg.JWT.Secret = "goalquest-secret-key-change-in-production"
	cfg.Logging.Mode = "dev"
	cfg.Tracing.Exporter = "stdout"
	cfg.Tracing.SampleRatio = 0.1
	cfg.Gamification = Gamification{
		CatalogPath:          "catalog.yaml",
		Timezone:             "UTC",
		ActivityLookbackDays: 400,
		UnlockWorkers:        4,
		LockTTL:              10 * time.Second,
		RecommendationLimit:  5,
		PredictionWindowDays: 90,
	}
	return cfg
}

// LoadConfig читает YAML-файл поверх значений по умолчанию и применяет переменные окружения.
// Отсутствующий файл не считается ошибкой.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.CORSOrigins, "CORS_ORIGINS")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Logging.Mode, "LOG_MODE")
	setString(&cfg.Gamification.CatalogPath, "CATALOG_PATH")
	setString(&cfg.Gamification.Timezone, "GAMIFICATION_TIMEZONE")
	setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.Tracing.Enabled = b
		}
	}
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	g := &c.Gamification
	if g.UnlockWorkers <= 0 {
		g.UnlockWorkers = 1
	}
	if g.ActivityLookbackDays < 31 {
		return fmt.Errorf("gamification.activity_lookback_days must be at least 31, got %d", g.ActivityLookbackDays)
	}
	if g.LockTTL <= 0 {
		g.LockTTL = 10 * time.Second
	}
	if g.RecommendationLimit <= 0 {
		g.RecommendationLimit = 5
	}
	if g.PredictionWindowDays <= 0 {
		g.PredictionWindowDays = 90
	}
	if _, err := time.LoadLocation(g.Timezone); err != nil {
		return fmt.Errorf("gamification.timezone: %w", err)
	}
	return nil
}
