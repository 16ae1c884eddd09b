package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	ErrMissingURL    = errors.New("PULSE_URL is required")
	ErrMissingSecret = errors.New("PULSED_JWT_SECRET is required")
)

// Client configures the terminal client
type Client struct {
	URL              string
	AnonKey          string
	RefreshInterval  time.Duration
	SettingsDebounce time.Duration
	DataDir          string
	RedisURL         string
	LogFile          string
	Debug            bool
}

// Server configures the development data service
type Server struct {
	Addr      string
	Driver    string
	DSN       string
	JWTSecret string
	TokenTTL  time.Duration
	Debug     bool
}

// NewClient returns the client defaults
func NewClient() Client {
	return Client{
		URL:              "http://localhost:54321",
		RefreshInterval:  30 * time.Second,
		SettingsDebounce: time.Second,
	}
}

// NewServer returns the development service defaults
func NewServer() Server {
	return Server{
		Addr:     ":54321",
		Driver:   "sqlite3",
		DSN:      "pulsed.db",
		TokenTTL: time.Hour,
	}
}

// ClientFromEnv reads the client configuration from the environment
func ClientFromEnv() (Client, error) {
	c := NewClient()
	if v, ok := os.LookupEnv("PULSE_URL"); ok {
		c.URL = v
	}
	if c.URL == "" {
		return c, ErrMissingURL
	}
	c.AnonKey = os.Getenv("PULSE_ANON_KEY")
	c.DataDir = os.Getenv("PULSE_DATA_DIR")
	c.RedisURL = os.Getenv("PULSE_REDIS_URL")
	c.LogFile = os.Getenv("PULSE_LOG_FILE")

	var err error
	if c.RefreshInterval, err = durationEnv("PULSE_REFRESH_INTERVAL", c.RefreshInterval); err != nil {
		return c, err
	}
	if c.SettingsDebounce, err = durationEnv("PULSE_SETTINGS_DEBOUNCE", c.SettingsDebounce); err != nil {
		return c, err
	}
	if c.Debug, err = boolEnv("PULSE_DEBUG"); err != nil {
		return c, err
	}
	return c, nil
}

// ServerFromEnv reads the development service configuration from the environment
func ServerFromEnv() (Server, error) {
	s := NewServer()
	if v := os.Getenv("PULSED_ADDR"); v != "" {
		s.Addr = v
	}
	if v := os.Getenv("PULSED_DRIVER"); v != "" {
		s.Driver = v
	}
	if v := os.Getenv("PULSED_DSN"); v != "" {
		s.DSN = v
	}
	s.JWTSecret = os.Getenv("PULSED_JWT_SECRET")
	if s.JWTSecret == "" {
		return s, ErrMissingSecret
	}

	var err error
	if s.TokenTTL, err = durationEnv("PULSED_TOKEN_TTL", s.TokenTTL); err != nil {
		return s, err
	}
	if s.Debug, err = boolEnv("PULSED_DEBUG"); err != nil {
		return s, err
	}
	return s, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}

func boolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
