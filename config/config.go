/*
Package config loads runtime configuration.

SOURCES (later wins):
  1. Built-in defaults
  2. Settings file (SETTINGS_FILE, YAML): currency, phone country code,
     payment methods, SMS templates
  3. Environment variables (optionally from a .env file)

ENVIRONMENT:
  HTTP_ADDR           listen address            (":8080")
  DATABASE_PATH       SQLite file               ("ledger.db")
  SETTINGS_FILE       settings YAML             ("settings.yaml")
  LOG_LEVEL           zap level                 ("info")
  LEDGER_CURRENCY     overrides settings        ("MZN")
  LEDGER_MAX_AMOUNT   cap on edited amounts, 0 disables ("1000000")
  SHUTDOWN_TIMEOUT    graceful shutdown window  ("10s")
  CORS_ORIGINS        comma-separated origins   ("*")
  LEDGER_SEED_DEMO    load the demo book into an empty ledger (false)
  REMINDER_INTERVAL   automatic debt reminder check, 0 disables ("0")
  REMINDER_MIN_AGE    quiet period before a reminder ("168h")
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/notify"
)

type Config struct {
	HTTPAddr        string
	DatabasePath    string
	SettingsFile    string
	LogLevel        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxAmount       decimal.Decimal
	SeedDemo        bool

	ReminderInterval time.Duration
	ReminderMinAge   time.Duration

	Settings Settings
}

// Settings is the agent-facing configuration kept in the YAML file.
type Settings struct {
	Currency    string           `yaml:"currency"`
	CountryCode string           `yaml:"country_code"`
	Methods     []MethodSetting  `yaml:"methods"`
	Templates   notify.Templates `yaml:"sms_templates"`
}

type MethodSetting struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Color  string `yaml:"color"`
	Active *bool  `yaml:"active"`
}

func DefaultSettings() Settings {
	return Settings{
		Currency:    "MZN",
		CountryCode: ledger.DefaultCountryCode,
		Methods: []MethodSetting{
			{ID: "cash", Name: "Cash", Color: "#16a34a"},
			{ID: "m-pesa", Name: "M-Pesa", Color: "#dc2626"},
			{ID: "e-mola", Name: "E-Mola", Color: "#f59e0b"},
		},
		Templates: notify.DefaultTemplates(),
	}
}

// PaymentMethods converts the configured methods for ledger.SeedMethods.
func (s Settings) PaymentMethods() []ledger.PaymentMethod {
	out := make([]ledger.PaymentMethod, 0, len(s.Methods))
	for _, m := range s.Methods {
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		out = append(out, ledger.PaymentMethod{
			ID:     ledger.MethodID(m.ID),
			Name:   m.Name,
			Color:  m.Color,
			Active: active,
		})
	}
	return out
}

// LoadDotEnv loads a .env file when one exists. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	shutdown, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	reminderInterval, err := getEnvDuration("REMINDER_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	reminderMinAge, err := getEnvDuration("REMINDER_MIN_AGE", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	maxAmount, err := getEnvDecimal("LEDGER_MAX_AMOUNT", ledger.DefaultMaxAmount)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        getEnvString("HTTP_ADDR", ":8080"),
		DatabasePath:    getEnvString("DATABASE_PATH", "ledger.db"),
		SettingsFile:    getEnvString("SETTINGS_FILE", "settings.yaml"),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		ShutdownTimeout: shutdown,
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxAmount:       maxAmount,
		SeedDemo:        getEnvBool("LEDGER_SEED_DEMO", false),

		ReminderInterval: reminderInterval,
		ReminderMinAge:   reminderMinAge,
	}

	cfg.Settings, err = LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	cfg.Settings.Currency = getEnvString("LEDGER_CURRENCY", cfg.Settings.Currency)
	return cfg, nil
}

// LoadSettings reads the settings YAML. A missing file yields the defaults;
// fields absent from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return settings, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("unable to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	for i, m := range settings.Methods {
		if m.ID == "" && m.Name == "" {
			return settings, fmt.Errorf("method at index %d missing id and name", i)
		}
	}
	if settings.Currency == "" {
		return settings, fmt.Errorf("%s: currency is required", path)
	}
	return settings, nil
}

// Helpers

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return decimal.Zero, fmt.Errorf("invalid amount for %s: %q", key, value)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
