package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultSource         = "system"
	defaultTierPreference = "registered"
	defaultScanner        = "rustscan"
)

// Config represents user configuration on disk.
type Config struct {
	DefaultSource  string `json:"default_source"`
	CacheFile      string `json:"cache_file"`
	IANACSVFile    string `json:"iana_csv_file"`
	TierPreference string `json:"tier_preference"`
	Scanner        string `json:"scanner"`
	LogFile        string `json:"log_file"`
}

type configOnDisk struct {
	DefaultSource  *string `json:"default_source"`
	CacheFile      *string `json:"cache_file"`
	IANACSVFile    *string `json:"iana_csv_file"`
	TierPreference *string `json:"tier_preference"`
	Scanner        *string `json:"scanner"`
	LogFile        *string `json:"log_file"`
}

func Default() Config {
	return Config{
		DefaultSource:  defaultSource,
		CacheFile:      defaultDataPath("nmap-services.cache"),
		IANACSVFile:    defaultDataPath("service-names-port-numbers.csv"),
		TierPreference: defaultTierPreference,
		Scanner:        defaultScanner,
		LogFile:        "",
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "portpick", "config.json")
	}
	return filepath.Join(home, ".config", "portpick", "config.json")
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cache", "portpick", name)
	}
	return filepath.Join(home, ".cache", "portpick", name)
}

func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	path = ExpandPath(path)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return Config{}, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	} else if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var raw configOnDisk
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg := Default()
	if raw.DefaultSource != nil {
		cfg.DefaultSource = strings.TrimSpace(*raw.DefaultSource)
	}
	if raw.CacheFile != nil {
		cfg.CacheFile = strings.TrimSpace(*raw.CacheFile)
	}
	if raw.IANACSVFile != nil {
		cfg.IANACSVFile = strings.TrimSpace(*raw.IANACSVFile)
	}
	if raw.TierPreference != nil {
		cfg.TierPreference = strings.TrimSpace(*raw.TierPreference)
	}
	if raw.Scanner != nil {
		cfg.Scanner = strings.TrimSpace(*raw.Scanner)
	}
	if raw.LogFile != nil {
		cfg.LogFile = strings.TrimSpace(*raw.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	path = ExpandPath(path)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (c Config) Validate() error {
	switch c.TierPreference {
	case "registered", "dynamic":
	default:
		return fmt.Errorf("tier_preference must be %q or %q", "registered", "dynamic")
	}
	if c.CacheFile == "" {
		return fmt.Errorf("cache_file must not be empty")
	}
	if c.IANACSVFile == "" {
		return fmt.Errorf("iana_csv_file must not be empty")
	}
	if c.Scanner == "" {
		return fmt.Errorf("scanner must not be empty")
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
