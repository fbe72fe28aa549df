package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Simulation.Tau != 0.01 {
		t.Errorf("expected Tau 0.01, got %v", config.Simulation.Tau)
	}
	if config.Plasticity.Mode != "reward" {
		t.Errorf("expected Mode 'reward', got '%s'", config.Plasticity.Mode)
	}
	if config.Plasticity.PruneThreshold != 0.1 {
		t.Errorf("expected PruneThreshold 0.1, got %v", config.Plasticity.PruneThreshold)
	}
	if !config.Learning.Enabled {
		t.Error("expected Learning.Enabled to be true by default")
	}
	if len(config.Learning.Classes) != 2 {
		t.Errorf("expected 2 default classes, got %d", len(config.Learning.Classes))
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  tau: 0.025
  workers: 4
  seed: 99
plasticity:
  mode: direct
  prune_threshold: 0.05
learning:
  enabled: true
  target_spikes: 5
  time_between_classes: 2.5
store:
  kind: sqlite
  path: /tmp/runs.db
checkpoint:
  max_size: 2MB
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Tau != 0.025 {
		t.Errorf("expected Tau 0.025, got %v", config.Simulation.Tau)
	}
	if config.Simulation.Workers != 4 || config.Simulation.Seed != 99 {
		t.Errorf("expected workers 4 seed 99, got %d %d", config.Simulation.Workers, config.Simulation.Seed)
	}
	if config.Plasticity.Mode != "direct" || config.Plasticity.PruneThreshold != 0.05 {
		t.Errorf("plasticity not loaded: %+v", config.Plasticity)
	}
	if config.Learning.TargetSpikes != 5 || config.Learning.TimeBetweenClasses != 2.5 {
		t.Errorf("inline learning fields not loaded: %+v", config.Learning.Config)
	}
	if config.Learning.InputLayer != "input" {
		t.Errorf("expected default InputLayer to survive, got %q", config.Learning.InputLayer)
	}
	if config.Store.Kind != "sqlite" || config.Store.Path != "/tmp/runs.db" {
		t.Errorf("store not loaded: %+v", config.Store)
	}
	if config.Checkpoint.MaxSize != 2*datasize.MB {
		t.Errorf("expected checkpoint max_size 2MB, got %v", config.Checkpoint.MaxSize)
	}
	// Unspecified sections keep defaults.
	if len(config.Network.Layers) != 4 {
		t.Errorf("expected default network, got %d layers", len(config.Network.Layers))
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("simulation: [unclosed"), 0600)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveRoundTripsThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := Default()
	config.Simulation.Seed = 1234

	if err := Save(config, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Simulation.Seed != 1234 {
		t.Errorf("Seed = %d after save, want 1234", loaded.Simulation.Seed)
	}
	if loaded.Checkpoint.MaxSize != config.Checkpoint.MaxSize {
		t.Errorf("Checkpoint.MaxSize = %v after save, want %v", loaded.Checkpoint.MaxSize, config.Checkpoint.MaxSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*SiliconConfig)
		wantErr string
	}{
		{"valid default", func(c *SiliconConfig) {}, ""},
		{"zero tau", func(c *SiliconConfig) { c.Simulation.Tau = 0 }, "tau"},
		{"negative workers", func(c *SiliconConfig) { c.Simulation.Workers = -1 }, "workers"},
		{"zero max spikes", func(c *SiliconConfig) { c.Simulation.MaxSpikes = 0 }, "max_spikes"},
		{"bad mode", func(c *SiliconConfig) { c.Plasticity.Mode = "hebbian" }, "plasticity mode"},
		{"inverted weight bounds", func(c *SiliconConfig) {
			c.Network.Synapse.STDP.WMin = 2
		}, "w_min"},
		{"learning layer missing", func(c *SiliconConfig) { c.Learning.OutputLayer = "nowhere" }, "output_layer"},
		{"learning disabled ignores layers", func(c *SiliconConfig) {
			c.Learning.Enabled = false
			c.Learning.OutputLayer = "nowhere"
		}, ""},
		{"bad store", func(c *SiliconConfig) { c.Store.Kind = "postgres" }, "store kind"},
		{"zero checkpoint size", func(c *SiliconConfig) { c.Checkpoint.MaxSize = 0 }, "max_size"},
		{"bad log level", func(c *SiliconConfig) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SILICON_TAU", "0.005")
	t.Setenv("SILICON_WORKERS", "8")
	t.Setenv("SILICON_SEED", "7")
	t.Setenv("SILICON_PRUNE_THRESHOLD", "0.2")
	t.Setenv("SILICON_PLASTICITY_MODE", "direct")
	t.Setenv("SILICON_STORE_PATH", "/tmp/x.db")
	t.Setenv("SILICON_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Tau != 0.005 {
		t.Errorf("Tau = %v, want 0.005", config.Simulation.Tau)
	}
	if config.Simulation.Workers != 8 || config.Simulation.Seed != 7 {
		t.Errorf("Workers/Seed = %d/%d, want 8/7", config.Simulation.Workers, config.Simulation.Seed)
	}
	if config.Plasticity.PruneThreshold != 0.2 || config.Plasticity.Mode != "direct" {
		t.Errorf("plasticity = %+v", config.Plasticity)
	}
	if config.Store.Kind != "sqlite" || config.Store.Path != "/tmp/x.db" {
		t.Errorf("store = %+v, want sqlite at /tmp/x.db", config.Store)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", config.Logging.Level)
	}
}

func TestApplyEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("SILICON_TAU", "fast")
	t.Setenv("SILICON_WORKERS", "many")

	config := Default()
	applyEnvOverrides(config)
	if config.Simulation.Tau != 0.01 || config.Simulation.Workers != 1 {
		t.Errorf("garbage env changed config: %+v", config.Simulation)
	}
}

func TestLoad_UsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".silicon")
	os.MkdirAll(dir, 0700)
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("simulation:\n  seed: 55\n"), 0600)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Simulation.Seed != 55 {
		t.Errorf("Seed = %d, want 55 from home config", config.Simulation.Seed)
	}
}
