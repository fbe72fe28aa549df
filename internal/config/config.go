// Package config provides configuration loading for silicon.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/silicon/internal/learning"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/neurons"
	"github.com/nvandessel/silicon/internal/pipeline"
)

// SiliconConfig contains all silicon configuration settings.
type SiliconConfig struct {
	// Simulation controls the clock and tick execution.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Plasticity controls how STDP deltas reach synapse weights.
	Plasticity PlasticityConfig `json:"plasticity" yaml:"plasticity"`

	// Network describes the layers and connections to build.
	Network network.Topology `json:"network" yaml:"network"`

	// Learning configures the reward loop.
	Learning LearningConfig `json:"learning" yaml:"learning"`

	// Store configures run recording.
	Store StoreConfig `json:"store" yaml:"store"`

	// Checkpoint configures saved synapse state.
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig holds clock and scheduling settings.
type SimulationConfig struct {
	// Tau is the integration step in simulated seconds.
	Tau float64 `json:"tau" yaml:"tau"`

	// Budget is the initial simulated time available to run.
	Budget float64 `json:"budget" yaml:"budget"`

	// RunIndefinitely refills the budget automatically.
	RunIndefinitely bool    `json:"run_indefinitely" yaml:"run_indefinitely"`
	RefillIncrement float64 `json:"refill_increment" yaml:"refill_increment"`

	// Workers bounds parallel neuron integration (1 = sequential).
	Workers int `json:"workers" yaml:"workers"`

	// Seed drives network construction and learning randomness.
	Seed uint64 `json:"seed" yaml:"seed"`

	// MaxSpikes is the per-neuron spike recorder capacity.
	MaxSpikes int `json:"max_spikes" yaml:"max_spikes"`
}

// PlasticityConfig holds weight update settings.
type PlasticityConfig struct {
	// Mode is "reward" (default) or "direct".
	Mode           string  `json:"mode" yaml:"mode"`
	PruneThreshold float64 `json:"prune_threshold" yaml:"prune_threshold"`

	// DecayInterval and DecayAmount enable periodic weight decay when
	// both are positive.
	DecayInterval float64 `json:"decay_interval" yaml:"decay_interval"`
	DecayAmount   float64 `json:"decay_amount" yaml:"decay_amount"`
}

// LearningConfig wraps the reward loop settings with an on/off switch.
type LearningConfig struct {
	Enabled         bool `json:"enabled" yaml:"enabled"`
	learning.Config `yaml:",inline"`
}

// StoreConfig configures where runs are recorded.
type StoreConfig struct {
	// Kind is "memory", "sqlite", or "" for no recording.
	Kind string `json:"kind" yaml:"kind"`

	// Path is the sqlite database file. Defaults to ~/.silicon/runs.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// WeightsEvery records a weight snapshot every N ticks (0 = never).
	WeightsEvery int `json:"weights_every" yaml:"weights_every"`
}

// CheckpointConfig configures weight checkpoints.
type CheckpointConfig struct {
	// MaxSize bounds the decompressed payload accepted when loading,
	// e.g. "64MB".
	MaxSize datasize.ByteSize `json:"max_size" yaml:"max_size"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "warn", "info" (default), "debug" or "trace".
	// "debug" and "trace" also write learning events to EventsDir/events.jsonl.
	Level string `json:"level" yaml:"level"`

	// EventsDir defaults to ~/.silicon.
	EventsDir string `json:"events_dir,omitempty" yaml:"events_dir,omitempty"`
}

// Default returns a SiliconConfig with the reference settings.
func Default() *SiliconConfig {
	pcfg := pipeline.DefaultConfig()
	return &SiliconConfig{
		Simulation: SimulationConfig{
			Tau:             0.01,
			Budget:          20,
			RunIndefinitely: false,
			RefillIncrement: 1.0,
			Workers:         1,
			Seed:            1,
			MaxSpikes:       neurons.DefaultMaxSpikes,
		},
		Plasticity: PlasticityConfig{
			Mode:           string(pcfg.Mode),
			PruneThreshold: pcfg.PruneThreshold,
		},
		Network: network.DefaultTopology(),
		Learning: LearningConfig{
			Enabled: true,
			Config:  learning.DefaultConfig(),
		},
		Store: StoreConfig{
			Kind:         "",
			WeightsEvery: 100,
		},
		Checkpoint: CheckpointConfig{
			MaxSize: 64 * datasize.MB,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns ~/.silicon.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".silicon"), nil
}

// DefaultPath returns ~/.silicon/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from the default location and environment.
// Order: defaults -> ~/.silicon/config.yaml -> environment variables
func Load() (*SiliconConfig, error) {
	config := Default()

	if path, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			fileConfig, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadPath loads path when non-empty and Load otherwise. Environment
// overrides apply in both cases.
func LoadPath(path string) (*SiliconConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Missing
// fields keep their defaults.
func LoadFromFile(path string) (*SiliconConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Save writes the configuration to path, creating parent directories.
func Save(config *SiliconConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *SiliconConfig) Validate() error {
	if !(c.Simulation.Tau > 0) {
		return fmt.Errorf("tau must be positive, got %v", c.Simulation.Tau)
	}
	if c.Simulation.Budget < 0 {
		return fmt.Errorf("budget must be non-negative, got %v", c.Simulation.Budget)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Simulation.Workers)
	}
	if c.Simulation.MaxSpikes <= 0 {
		return fmt.Errorf("max_spikes must be positive, got %d", c.Simulation.MaxSpikes)
	}

	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if c.Learning.Enabled {
		if err := c.Learning.Config.Validate(); err != nil {
			return err
		}
		if !hasLayer(c.Network, c.Learning.InputLayer) || !hasLayer(c.Network, c.Learning.OutputLayer) {
			return errors.New("learning input_layer and output_layer must name network layers")
		}
	}

	validStores := map[string]bool{"": true, "memory": true, "sqlite": true}
	if !validStores[c.Store.Kind] {
		return fmt.Errorf("invalid store kind: %s (valid: memory, sqlite, or empty)", c.Store.Kind)
	}

	if c.Checkpoint.MaxSize == 0 {
		return errors.New("checkpoint max_size must be positive")
	}

	validLevels := map[string]bool{"warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// PipelineConfig converts the plasticity and simulation settings into the
// tick pipeline's configuration.
func (c *SiliconConfig) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		PruneThreshold: c.Plasticity.PruneThreshold,
		Workers:        c.Simulation.Workers,
		Mode:           pipeline.PlasticityMode(c.Plasticity.Mode),
		DecayInterval:  c.Plasticity.DecayInterval,
		DecayAmount:    c.Plasticity.DecayAmount,
	}
}

func hasLayer(t network.Topology, name string) bool {
	for _, l := range t.Layers {
		if l.Name == name {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SiliconConfig) {
	if v := os.Getenv("SILICON_TAU"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Tau = f
		}
	}

	if v := os.Getenv("SILICON_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}

	if v := os.Getenv("SILICON_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("SILICON_PRUNE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Plasticity.PruneThreshold = f
		}
	}

	if v := os.Getenv("SILICON_PLASTICITY_MODE"); v != "" {
		config.Plasticity.Mode = v
	}

	if v := os.Getenv("SILICON_STORE_PATH"); v != "" {
		config.Store.Path = v
		if config.Store.Kind == "" {
			config.Store.Kind = "sqlite"
		}
	}

	if v := os.Getenv("SILICON_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
