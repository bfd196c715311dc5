package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	DB         DBConfig         `yaml:"db"`
	Elevation  ElevationConfig  `yaml:"elevation"`
	Heights    HeightsConfig    `yaml:"heights"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ElevationConfig holds settings for the terrain elevation fetcher.
type ElevationConfig struct {
	LookupURL         string  `yaml:"lookup_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BatchSize         int     `yaml:"batch_size"`
	GridRows          int     `yaml:"grid_rows"`
	GridCols          int     `yaml:"grid_cols"`
	Passes            int     `yaml:"passes"`
	H3Resolution      int     `yaml:"h3_resolution"`
}

// HeightsConfig holds fallback heights for stamped structures.
type HeightsConfig struct {
	DefaultBuilding Distance `yaml:"default_building"`
	Obstacle        Distance `yaml:"obstacle"`
}

// VisibilityConfig holds line-of-sight computation settings. Heights are
// in feet because that is how signage and eye levels are quoted in the
// field; they are converted to meters at computation time.
type VisibilityConfig struct {
	ViewerHeightFt float64 `yaml:"viewer_height_ft"`
	TargetHeightFt float64 `yaml:"target_height_ft"`
	SampleStepPx   float64 `yaml:"sample_step_px"`
	Passes         int     `yaml:"passes"`
}

// OptimizerConfig holds placement search settings.
type OptimizerConfig struct {
	RotationStepDeg       float64 `yaml:"rotation_step_deg"`
	RotationRefineStepDeg float64 `yaml:"rotation_refine_step_deg"`
	PlacementSamples      int     `yaml:"placement_samples"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:1931",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/sightline.db",
		},
		Elevation: ElevationConfig{
			LookupURL:         "https://api.open-elevation.com/api/v1/lookup",
			RequestsPerSecond: 5,
			BatchSize:         100,
			GridRows:          64,
			GridCols:          64,
			Passes:            3,
			H3Resolution:      13,
		},
		Heights: HeightsConfig{
			DefaultBuilding: Distance(8),   // two storeys
			Obstacle:        Distance(100), // tall enough to block every slice
		},
		Visibility: VisibilityConfig{
			ViewerHeightFt: 5.2,
			TargetHeightFt: 20,
			SampleStepPx:   4,
			Passes:         3,
		},
		Optimizer: OptimizerConfig{
			RotationStepDeg:       15,
			RotationRefineStepDeg: 2,
			PlacementSamples:      8,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file if it exists
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Load from Env if empty (as a fallback, but do NOT save back to disk)
		if cfg.Elevation.LookupURL == "" {
			if url := os.Getenv("ELEVATION_LOOKUP_URL"); url != "" {
				cfg.Elevation.LookupURL = url
			}
		}

		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Sightline Configuration
# -----------------------
# Supported Units:
#   Duration: ns, us, ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), ft (feet)

`)
	data = append(header, data...)

	// Inject comments for fields whose values are easy to misread.
	reStep := regexp.MustCompile(`(?m)^(\s+)sample_step_px:`)
	data = reStep.ReplaceAll(data, []byte("${1}# Final pass spacing; earlier passes double it per pass\n${1}sample_step_px:"))

	reH3 := regexp.MustCompile(`(?m)^(\s+)h3_resolution:`)
	data = reH3.ReplaceAll(data, []byte("${1}# Cell resolution for elevation cache keys (13 is ~44m2)\n${1}h3_resolution:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write default config
	return Save(path, DefaultConfig())
}
