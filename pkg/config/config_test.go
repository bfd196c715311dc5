package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sightline.yaml")

	tests := []struct {
		name      string
		setup     func()
		validate  func(*testing.T, *Config)
		checkFile func(*testing.T)
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != "localhost:1931" {
					t.Errorf("expected default address 'localhost:1931', got '%s'", cfg.Server.Address)
				}
				if cfg.Visibility.ViewerHeightFt != 5.2 {
					t.Errorf("expected default viewer height 5.2, got %v", cfg.Visibility.ViewerHeightFt)
				}
				if cfg.Elevation.Passes != 3 {
					t.Errorf("expected default elevation passes 3, got %d", cfg.Elevation.Passes)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "address: localhost:1931") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Final pass spacing") {
					t.Error("config file missing injected comment for sample_step_px")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte(
					"server:\n  address: 0.0.0.0:9000\nvisibility:\n  target_height_ft: 33\nheights:\n  default_building: 12m\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != "0.0.0.0:9000" {
					t.Errorf("expected address '0.0.0.0:9000', got '%s'", cfg.Server.Address)
				}
				if cfg.Visibility.TargetHeightFt != 33 {
					t.Errorf("expected target height 33, got %v", cfg.Visibility.TargetHeightFt)
				}
				if cfg.Heights.DefaultBuilding != Distance(12) {
					t.Errorf("expected default building 12m, got %v", cfg.Heights.DefaultBuilding)
				}
				// Untouched fields keep their defaults.
				if cfg.Optimizer.RotationStepDeg != 15 {
					t.Errorf("expected default rotation step 15, got %v", cfg.Optimizer.RotationStepDeg)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				// Load must not rewrite an existing file.
				if strings.Contains(string(content), "rotation_step_deg") {
					t.Error("config file should preserve user content, not be re-saved")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			tt.validate(t, cfg)
			tt.checkFile(t)
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sightline.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() failed: %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	// A second call must leave an existing file untouched.
	if err := os.WriteFile(configPath, []byte("server:\n  address: custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() second call failed: %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if !strings.Contains(string(content), "address: custom") {
		t.Error("GenerateDefault() overwrote an existing file")
	}
}
