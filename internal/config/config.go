// Package config provides application configuration for threadview.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the threadview configuration.
type Config struct {
	Theme  string       `json:"theme"`
	Server ServerConfig `json:"server"`
	Viewer ViewerConfig `json:"viewer"`
}

// ServerConfig holds connection settings for the thread backend.
type ServerConfig struct {
	BaseURL string `json:"base_url"`
	WSURL   string `json:"ws_url"`
	Token   string `json:"token,omitempty"`
}

// ViewerConfig holds tuning knobs for the conversation viewer.
type ViewerConfig struct {
	// CacheCapacity bounds how many threads stay resident at once.
	CacheCapacity int `json:"cache_capacity"`

	// OverscanLines is rendered above and below the viewport.
	OverscanLines int `json:"overscan_lines"`

	// BottomToleranceLines is the slack when deciding whether the view
	// counts as pinned to the bottom.
	BottomToleranceLines int `json:"bottom_tolerance_lines"`

	// StabilizerDebounceFrames is how many consecutive frames the
	// content height must hold before a pending scroll applies.
	StabilizerDebounceFrames int `json:"stabilizer_debounce_frames"`

	// StabilizerMaxChecks caps how long a pending scroll may wait.
	StabilizerMaxChecks int `json:"stabilizer_max_checks"`
}

// Dir returns the path to the .threadview directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadview"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// StatePath returns the path to the scroll state database.
func StatePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "state.db"), nil
}

// LogPath returns the path to the TUI log file.
func LogPath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "threadview.log"), nil
}

// Load loads the configuration from ~/.threadview/config.json.
func Load() (Config, error) {
	configPath, err := Path()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := Save(cfg); saveErr != nil {
			return cfg, nil // return defaults even if save fails
		}
		return cfg, nil
	} else if err != nil {
		return Config{}, err
	}

	// Start from defaults so missing keys keep correct values
	config := Default()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}

	config.Viewer = config.Viewer.normalized()
	if config.Theme == "" {
		config.Theme = "dark"
	}

	return config, nil
}

// Default returns a configuration with all defaults set.
func Default() Config {
	return Config{
		Theme: "dark",
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:7311",
			WSURL:   "ws://127.0.0.1:7311",
		},
		Viewer: ViewerConfig{
			CacheCapacity:            10,
			OverscanLines:            40,
			BottomToleranceLines:     1,
			StabilizerDebounceFrames: 3,
			StabilizerMaxChecks:      60,
		},
	}
}

func (v ViewerConfig) normalized() ViewerConfig {
	def := Default().Viewer
	if v.CacheCapacity <= 0 {
		v.CacheCapacity = def.CacheCapacity
	}
	if v.OverscanLines <= 0 {
		v.OverscanLines = def.OverscanLines
	}
	if v.BottomToleranceLines < 0 {
		v.BottomToleranceLines = def.BottomToleranceLines
	}
	if v.StabilizerDebounceFrames <= 0 {
		v.StabilizerDebounceFrames = def.StabilizerDebounceFrames
	}
	if v.StabilizerMaxChecks <= 0 {
		v.StabilizerMaxChecks = def.StabilizerMaxChecks
	}
	return v
}

// Save saves the configuration to ~/.threadview/config.json.
func Save(config Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}
