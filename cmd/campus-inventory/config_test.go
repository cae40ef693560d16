package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("default_campus: zona core\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "inventory" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Catalog.Path != filepath.Join("inventory", "catalog.db") {
		t.Errorf("catalog.path = %q", cfg.Catalog.Path)
	}
	if cfg.DefaultCampus != "zona core" {
		t.Errorf("default_campus = %q", cfg.DefaultCampus)
	}
	if cfg.MQTT.TopicPrefix != "campus-inventory" || cfg.Log.Level != "warn" || cfg.Log.Format != "text" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `data_dir: /var/lib/inv
catalog:
  path: /var/lib/inv/cat.db
campuses: [norte, sur]
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  topic_prefix: inv
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Catalog.Path != "/var/lib/inv/cat.db" || len(cfg.Campuses) != 2 || cfg.MQTT.TopicPrefix != "inv" {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
	cfg.MQTT.Broker = ""
	if err := cfg.validate(); err == nil {
		t.Error("enabled mqtt without broker should not validate")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit missing config should fail")
	}

	// The default path may be absent.
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(defaultConfigPath); err != nil {
		t.Errorf("missing default config: %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("campuses: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("invalid yaml should fail")
	}
}
