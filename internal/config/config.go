// Package config reads runtime settings from the environment, after loading
// a .env file if one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultServerAddr = "127.0.0.1:5001"
	DefaultServerURL  = "ws://127.0.0.1:5001/ws"
)

type Config struct {
	ServerAddr     string
	ServerURL      string
	DatabaseURL    string
	LogLevel       string
	LogDev         bool
	AllowedOrigins []string
	OutboxSize     int
	MessageLogSize int
	WriteTimeout   time.Duration
}

func Default() Config {
	return Config{
		ServerAddr:     DefaultServerAddr,
		ServerURL:      DefaultServerURL,
		LogLevel:       "info",
		AllowedOrigins: []string{"localhost:*", "127.0.0.1:*"},
		OutboxSize:     16,
		MessageLogSize: 256,
		WriteTimeout:   3 * time.Second,
	}
}

// Load applies the given dotenv files (".env" when none are named) and then
// reads the environment. Missing dotenv files are not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv falls back to Default for anything unset or unparsable.
func FromEnv() Config {
	cfg := Default()

	if v, ok := os.LookupEnv("ROSTER_SERVER_ADDR"); ok && v != "" {
		cfg.ServerAddr = v
	}
	if v, ok := os.LookupEnv("ROSTER_SERVER_URL"); ok && v != "" {
		cfg.ServerURL = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("LOG_DEV"); ok {
		cfg.LogDev = parseBool(v, cfg.LogDev)
	}
	if v, ok := os.LookupEnv("ROSTER_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.AllowedOrigins = parseList(v)
	}
	if v, ok := os.LookupEnv("ROSTER_OUTBOX_SIZE"); ok {
		cfg.OutboxSize = parsePositiveInt(v, cfg.OutboxSize)
	}
	if v, ok := os.LookupEnv("ROSTER_MESSAGE_LOG_SIZE"); ok {
		cfg.MessageLogSize = parsePositiveInt(v, cfg.MessageLogSize)
	}
	if v, ok := os.LookupEnv("ROSTER_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = parseDuration(v, cfg.WriteTimeout)
	}

	return cfg
}

func parseList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func parsePositiveInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
