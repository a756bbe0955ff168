package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	CoinChart struct {
		APIURL    string        `yaml:"api_url" default:"https://api.coinchart.fun"`
		Exchange  string        `yaml:"exchange" default:"binance"`
		Timeout   time.Duration `yaml:"timeout" default:"15s"`
		CandleTTL time.Duration `yaml:"candle_ttl" default:"1m"`
		SymbolTTL time.Duration `yaml:"symbol_ttl" default:"10m"`
	} `yaml:"coinchart"`
	Chart struct {
		Width         int           `yaml:"width" default:"1200"`
		Height        int           `yaml:"height" default:"800"`
		LayoutTimeout time.Duration `yaml:"layout_timeout" default:"2s"`
		MaxSessions   int           `yaml:"max_sessions" default:"64"`
		RenderBurst   int           `yaml:"render_burst" default:"10"`
		RenderPerSec  float64       `yaml:"render_per_sec" default:"5"`
	} `yaml:"chart"`
	Cache struct {
		MaxEntries int `yaml:"max_entries" default:"512"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"coinchart:"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Default returns a configuration holding only default values.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("COINCHART_API_URL"); v != "" {
		c.CoinChart.APIURL = v
	}
	if v := getenv("COINCHART_EXCHANGE"); v != "" {
		c.CoinChart.Exchange = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	u, err := url.Parse(c.CoinChart.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("coinchart.api_url must be an absolute http(s) URL, got '%s'", c.CoinChart.APIURL)
	}
	if c.CoinChart.Exchange == "" {
		return fmt.Errorf("coinchart.exchange is required")
	}
	if c.Chart.Width < 200 || c.Chart.Height < 200 {
		return fmt.Errorf("chart size must be at least 200x200, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	if c.Chart.LayoutTimeout <= 0 {
		return fmt.Errorf("chart.layout_timeout must be positive")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}
	return nil
}
