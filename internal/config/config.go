package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wealthapp/wealth-backend/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Database struct {
		ConnStr  string `yaml:"conn_str"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`
	AlphaVantage struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"alphavantage"`
	ExchangeRates struct {
		// RefreshInterval is how long the in-memory rate table stays fresh,
		// as a Go duration string
		RefreshInterval string `yaml:"refresh_interval"`
		// DefaultConversion maps currency codes to the hard-coded fallback
		// rate used when no historical rate is available near a date
		DefaultConversion map[string]float64 `yaml:"default_conversion"`
	} `yaml:"exchange_rates"`
	Schedule struct {
		NightlyCron string `yaml:"nightly_cron"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DB_CONN_STR"); v != "" {
		cfg.Database.ConnStr = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("EXCHANGE_RATE_REFRESH_INTERVAL"); v != "" {
		cfg.ExchangeRates.RefreshInterval = v
	}
	if v := os.Getenv("NIGHTLY_CRON"); v != "" {
		cfg.Schedule.NightlyCron = v
	}

	// Defaults
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = "postgres"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "wealth"
	}
	if cfg.ExchangeRates.RefreshInterval == "" {
		cfg.ExchangeRates.RefreshInterval = "24h"
	}
	if cfg.ExchangeRates.DefaultConversion == nil {
		cfg.ExchangeRates.DefaultConversion = map[string]float64{
			string(domain.CurrencySEK): 10,
		}
	}
	if cfg.Schedule.NightlyCron == "" {
		// Every night at 03:00
		cfg.Schedule.NightlyCron = "0 3 * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and parseable.
func (c *Config) Validate() error {
	if c.AlphaVantage.APIKey == "" {
		return fmt.Errorf("alphavantage.api_key is required")
	}
	if _, err := time.ParseDuration(c.ExchangeRates.RefreshInterval); err != nil {
		return fmt.Errorf("exchange_rates.refresh_interval is not a valid duration: %w", err)
	}
	for code, rate := range c.ExchangeRates.DefaultConversion {
		if rate <= 0 {
			return fmt.Errorf("exchange_rates.default_conversion[%s] must be positive", code)
		}
	}
	return nil
}

// DSN builds the Postgres connection string
func (c *Config) DSN() string {
	if c.Database.ConnStr != "" {
		return c.Database.ConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name)
}

// RefreshInterval returns the parsed rate table refresh interval
// Validate must have been called first
func (c *Config) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.ExchangeRates.RefreshInterval)
	if err != nil {
		return 0
	}
	return d
}

// DefaultConversionRates returns the fallback rate table keyed by currency
func (c *Config) DefaultConversionRates() map[domain.Currency]decimal.Decimal {
	rates := make(map[domain.Currency]decimal.Decimal, len(c.ExchangeRates.DefaultConversion))
	for code, rate := range c.ExchangeRates.DefaultConversion {
		rates[domain.Currency(code)] = decimal.NewFromFloat(rate)
	}
	return rates
}
