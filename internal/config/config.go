package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"spinwheel/internal/engine"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds the server settings.
type Config struct {
	Port          int
	DBPath        string // empty keeps snapshots in memory
	PrizesFile    string // optional YAML seed prizes
	DailyReset    string // optional cron spec for clearing winners
	FrameInterval time.Duration
	WheelSize     int
	Verbose       bool
}

// LoadEnv reads a .env file into the process environment. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ParseFlags parses args, falling back to environment variables for
// anything not given on the command line.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("spinwheel", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path (empty for in-memory)")
	fs.StringVar(&cfg.PrizesFile, "prizes", "", "YAML file with seed prizes")
	fs.StringVar(&cfg.DailyReset, "daily-reset", "", "Cron spec for clearing the winner ledger")
	fs.DurationVar(&cfg.FrameInterval, "frame", 0, "Spin frame interval")
	fs.IntVar(&cfg.WheelSize, "size", 0, "Rendered wheel size in pixels")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.Port == 0 {
		if cfg.Port, err = envInt("PORT", 8080); err != nil {
			return Config{}, err
		}
	}
	if cfg.WheelSize == 0 {
		if cfg.WheelSize, err = envInt("WHEEL_SIZE", 500); err != nil {
			return Config{}, err
		}
	}
	if cfg.FrameInterval == 0 {
		cfg.FrameInterval = engine.DefaultFrameInterval
		if v := os.Getenv("FRAME_INTERVAL"); v != "" {
			if cfg.FrameInterval, err = time.ParseDuration(v); err != nil {
				return Config{}, fmt.Errorf("invalid FRAME_INTERVAL: %w", err)
			}
		}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv("DB_PATH")
	}
	if cfg.PrizesFile == "" {
		cfg.PrizesFile = os.Getenv("PRIZES_FILE")
	}
	if cfg.DailyReset == "" {
		cfg.DailyReset = os.Getenv("DAILY_RESET")
	}
	if !cfg.Verbose {
		cfg.Verbose, _ = strconv.ParseBool(os.Getenv("VERBOSE"))
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.WheelSize < 64 {
		return Config{}, fmt.Errorf("wheel size %d is too small", cfg.WheelSize)
	}
	if cfg.FrameInterval <= 0 {
		return Config{}, errors.New("frame interval must be positive")
	}
	if cfg.DailyReset != "" {
		if _, err := cron.ParseStandard(cfg.DailyReset); err != nil {
			return Config{}, fmt.Errorf("invalid daily reset spec: %w", err)
		}
	}

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}
