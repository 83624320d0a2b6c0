// Package config loads runtime tunables for the tank battle server from
// environment variables. TankConfig and MapDefinition are not loaded here:
// per the external interfaces, those are handed to the server already
// parsed by an external collaborator.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is the default TCP address the server listens on for
	// client connections (length-prefixed JSON framing, not HTTP).
	DefaultAddr = ":7777"
	// DefaultTickRate is the simulation ticks-per-second used when no
	// override is supplied.
	DefaultTickRate = 20
	// DefaultFirstContactTimeout bounds how long a freshly accepted
	// connection may remain silent before being dropped.
	DefaultFirstContactTimeout = 5 * time.Second
	// DefaultMaxLobbies bounds concurrently active lobbies. Zero disables the limit.
	DefaultMaxLobbies = 64

	// DefaultLogLevel controls verbosity for server logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "tank-server.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultMetricsAddr is where the ops HTTP surface (health/metrics) listens.
	DefaultMetricsAddr = ":9090"

	// DefaultMapDir is where pre-parsed map definition JSON files are read
	// from at startup (asset parsing stays an external collaborator; this
	// only resolves already-valid files by name).
	DefaultMapDir = "maps"

	// DefaultFirstContactRate and DefaultFirstContactBurst bound how
	// quickly one remote address may open connections awaiting first
	// contact, via internal/httpapi's token-bucket limiter.
	DefaultFirstContactRate  = 2.0
	DefaultFirstContactBurst = 5
)

// Config captures all runtime tunables for the server process.
type Config struct {
	Address             string
	TickRate            int
	FirstContactTimeout time.Duration
	MaxLobbies          int
	MetricsAddr         string
	MapDir              string
	FirstContactRate    float64
	FirstContactBurst   int
	Logging             LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the server configuration from environment variables, applying
// sane defaults and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Address:             getString("TANK_ADDR", DefaultAddr),
		TickRate:            DefaultTickRate,
		FirstContactTimeout: DefaultFirstContactTimeout,
		MaxLobbies:          DefaultMaxLobbies,
		MetricsAddr:         getString("TANK_METRICS_ADDR", DefaultMetricsAddr),
		MapDir:              getString("TANK_MAP_DIR", DefaultMapDir),
		FirstContactRate:    DefaultFirstContactRate,
		FirstContactBurst:   DefaultFirstContactBurst,
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("TANK_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("TANK_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("TANK_TICK_RATE")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TANK_TICK_RATE must be a positive integer, got %q", raw))
		} else {
			cfg.TickRate = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_FIRST_CONTACT_TIMEOUT_MS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TANK_FIRST_CONTACT_TIMEOUT_MS must be a positive integer, got %q", raw))
		} else {
			cfg.FirstContactTimeout = time.Duration(value) * time.Millisecond
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_MAX_LOBBIES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("TANK_MAX_LOBBIES must be a non-negative integer, got %q", raw))
		} else {
			cfg.MaxLobbies = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TANK_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("TANK_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("TANK_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("TANK_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_FIRST_CONTACT_RATE")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TANK_FIRST_CONTACT_RATE must be a positive number, got %q", raw))
		} else {
			cfg.FirstContactRate = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TANK_FIRST_CONTACT_BURST")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TANK_FIRST_CONTACT_BURST must be a positive integer, got %q", raw))
		} else {
			cfg.FirstContactBurst = value
		}
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
