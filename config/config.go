package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName    = ".slimwire"
	configFile = "config.json"
)

// Config holds user-level player configuration.
type Config struct {
	Server     string `json:"server,omitempty"`
	SlimPort   int    `json:"slim_port,omitempty"`
	WebPort    int    `json:"web_port,omitempty"`
	PlayerName string `json:"player_name,omitempty"`

	// BridgeAddr is the listen address for the local HTTP surface;
	// empty disables it.
	BridgeAddr string `json:"bridge_addr,omitempty"`

	PlayerCommand string   `json:"player_command,omitempty"`
	PlayerArgs    []string `json:"player_args,omitempty"`
}

// Default returns the built-in defaults. The server host has no default;
// it must come from the config file, environment, or a flag.
func Default() Config {
	return Config{
		SlimPort:      3483,
		WebPort:       9000,
		PlayerName:    "SlimWire",
		BridgeAddr:    "127.0.0.1:9835",
		PlayerCommand: "mpv",
		PlayerArgs:    []string{"--no-video", "--really-quiet"},
	}
}

// Path returns the default config file path, or the override if set.
func Path(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, dirName, configFile), nil
}

// Load reads the config file. Returns defaults if the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Re-apply defaults for fields an older config file may zero out.
	def := Default()
	if cfg.SlimPort == 0 {
		cfg.SlimPort = def.SlimPort
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = def.WebPort
	}
	if cfg.PlayerName == "" {
		cfg.PlayerName = def.PlayerName
	}
	if cfg.PlayerCommand == "" {
		cfg.PlayerCommand = def.PlayerCommand
		cfg.PlayerArgs = def.PlayerArgs
	}

	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
