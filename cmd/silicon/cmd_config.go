package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/silicon/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage silicon configuration",
		Long: `View and modify silicon configuration settings.

Configuration is stored in ~/.silicon/config.yaml unless --config names
another file. Network topology and learning classes are edited in the
file directly.

Examples:
  silicon config list                          # Show all settings
  silicon config get simulation.tau            # Get a specific setting
  silicon config set plasticity.mode direct    # Set a setting
  silicon config set store.kind sqlite`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"simulation.tau",
	"simulation.budget",
	"simulation.run_indefinitely",
	"simulation.refill_increment",
	"simulation.workers",
	"simulation.seed",
	"simulation.max_spikes",
	"plasticity.mode",
	"plasticity.prune_threshold",
	"plasticity.decay_interval",
	"plasticity.decay_amount",
	"learning.enabled",
	"learning.time_between_classes",
	"learning.target_spikes",
	"learning.queue_capacity",
	"store.kind",
	"store.path",
	"store.weights_every",
	"checkpoint.max_size",
	"logging.level",
	"logging.events_dir",
}

func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.LoadPath(flagConfig(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration (%s):\n\n", path)
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-32s %v\n", key+":", displayValue(value))
			}
			fmt.Fprintf(out, "\nNetwork: %d layers, %d connections\n", len(cfg.Network.Layers), len(cfg.Network.Connections))
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.LoadPath(flagConfig(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
					return nil
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, displayValue(value))
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}

			// Edit the file as written; environment overrides are not persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.LoadFromFile(path); err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func flagConfig(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.SiliconConfig, key string) (interface{}, bool) {
	switch key {
	case "simulation.tau":
		return cfg.Simulation.Tau, true
	case "simulation.budget":
		return cfg.Simulation.Budget, true
	case "simulation.run_indefinitely":
		return cfg.Simulation.RunIndefinitely, true
	case "simulation.refill_increment":
		return cfg.Simulation.RefillIncrement, true
	case "simulation.workers":
		return cfg.Simulation.Workers, true
	case "simulation.seed":
		return cfg.Simulation.Seed, true
	case "simulation.max_spikes":
		return cfg.Simulation.MaxSpikes, true
	case "plasticity.mode":
		return cfg.Plasticity.Mode, true
	case "plasticity.prune_threshold":
		return cfg.Plasticity.PruneThreshold, true
	case "plasticity.decay_interval":
		return cfg.Plasticity.DecayInterval, true
	case "plasticity.decay_amount":
		return cfg.Plasticity.DecayAmount, true
	case "learning.enabled":
		return cfg.Learning.Enabled, true
	case "learning.time_between_classes":
		return cfg.Learning.TimeBetweenClasses, true
	case "learning.target_spikes":
		return cfg.Learning.TargetSpikes, true
	case "learning.queue_capacity":
		return cfg.Learning.QueueCapacity, true
	case "store.kind":
		return cfg.Store.Kind, true
	case "store.path":
		return cfg.Store.Path, true
	case "store.weights_every":
		return cfg.Store.WeightsEvery, true
	case "checkpoint.max_size":
		return cfg.Checkpoint.MaxSize.HumanReadable(), true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.events_dir":
		return cfg.Logging.EventsDir, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to SiliconConfig.Validate.
func setConfigValue(cfg *config.SiliconConfig, key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %s", key, value)
		}
		return f, nil
	}
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		return n, nil
	}
	parseBool := func() bool { return value == "true" || value == "1" }

	var err error
	switch key {
	case "simulation.tau":
		cfg.Simulation.Tau, err = parseFloat()
	case "simulation.budget":
		cfg.Simulation.Budget, err = parseFloat()
	case "simulation.run_indefinitely":
		cfg.Simulation.RunIndefinitely = parseBool()
	case "simulation.refill_increment":
		cfg.Simulation.RefillIncrement, err = parseFloat()
	case "simulation.workers":
		cfg.Simulation.Workers, err = parseInt()
	case "simulation.seed":
		var n uint64
		n, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		cfg.Simulation.Seed = n
	case "simulation.max_spikes":
		cfg.Simulation.MaxSpikes, err = parseInt()
	case "plasticity.mode":
		cfg.Plasticity.Mode = value
	case "plasticity.prune_threshold":
		cfg.Plasticity.PruneThreshold, err = parseFloat()
	case "plasticity.decay_interval":
		cfg.Plasticity.DecayInterval, err = parseFloat()
	case "plasticity.decay_amount":
		cfg.Plasticity.DecayAmount, err = parseFloat()
	case "learning.enabled":
		cfg.Learning.Enabled = parseBool()
	case "learning.time_between_classes":
		cfg.Learning.TimeBetweenClasses, err = parseFloat()
	case "learning.target_spikes":
		cfg.Learning.TargetSpikes, err = parseFloat()
	case "learning.queue_capacity":
		cfg.Learning.QueueCapacity, err = parseInt()
	case "store.kind":
		cfg.Store.Kind = value
	case "store.path":
		cfg.Store.Path = value
	case "store.weights_every":
		cfg.Store.WeightsEvery, err = parseInt()
	case "checkpoint.max_size":
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("invalid size for %s: %s (e.g. 64MB)", key, value)
		}
		cfg.Checkpoint.MaxSize = size
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.events_dir":
		cfg.Logging.EventsDir = value
	default:
		return errors.New("unknown configuration key: " + key)
	}
	return err
}

// displayValue returns the value, or a placeholder for empty strings.
func displayValue(v interface{}) interface{} {
	if s, ok := v.(string); ok && s == "" {
		return "(not set)"
	}
	return v
}
