package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"campus-inventory/internal/session"
	"campus-inventory/internal/store"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const defaultConfigPath = "campus-inventory.yaml"

type Config struct {
	DataDir string `yaml:"data_dir"`
	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	Campuses      []string `yaml:"campuses"`
	DefaultCampus string   `yaml:"default_campus"`
	MQTT          struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) validate() error {
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

var (
	cfgFile    string
	campusFlag string
)

var rootCmd = &cobra.Command{
	Use:   "campus-inventory",
	Short: "Network device inventory grouped by campus",
	Long: `campus-inventory keeps a list of network devices (PCs, servers, routers,
switches, firewalls, printers) for each campus. Every change is validated
and written to the campus file before the command returns.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file")
	rootCmd.PersistentFlags().StringVarP(&campusFlag, "campus", "c", "", "campus to work on (default from config)")

	rootCmd.AddCommand(campusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app is the state one command runs with.
type app struct {
	cfg     *Config
	logger  *slog.Logger
	db      *store.BoltStore
	session *session.Session
	mqtt    *mqttStopper
}

// openApp loads config, opens the catalog and, when withCampus is set,
// selects the campus named by --campus or default_campus.
func openApp(withCampus bool) (*app, error) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	db, err := store.NewBoltStore(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	events := session.NewEventBus(logger)
	sess, err := session.New(session.Config{
		DataDir:  cfg.DataDir,
		Campuses: cfg.Campuses,
	}, db, events, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db, session: sess}
	// Start MQTT bridge (no-op when built with no_mqtt tag).
	a.mqtt = initMQTT(events, cfg, logger)

	if withCampus {
		campus := campusFlag
		if campus == "" {
			campus = cfg.DefaultCampus
		}
		if campus == "" {
			a.Close()
			return nil, fmt.Errorf("%w: pass --campus or set default_campus", session.ErrNoCampus)
		}
		if err := sess.Open(campus); err != nil {
			a.Close()
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("campus %q: %w (see 'campus list')", campus, err)
			}
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	a.mqtt.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close catalog", "err", err)
	}
}

// loadConfig reads path and fills defaults. A missing file at the default
// location means an all-defaults config; an explicit path must exist.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == defaultConfigPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "inventory"
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = filepath.Join(cfg.DataDir, "catalog.db")
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "campus-inventory"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
