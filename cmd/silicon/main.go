package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/silicon/internal/analytics"
	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/logging"
	"github.com/nvandessel/silicon/internal/metrics"
	"github.com/nvandessel/silicon/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "silicon",
		Short: "Spiking neural network simulator with reward-modulated STDP",
		Long: `silicon simulates layered networks of spiking neurons in discrete
time steps and trains them with reward-modulated spike-timing-dependent
plasticity.

Runs can be recorded to SQLite, exported as Arrow streams and driven
step by step from an MCP client.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.silicon/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newGraphCmd(),
		newExportCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// loadConfig resolves --config and --log-level into a validated config.
func loadConfig(cmd *cobra.Command) (*config.SiliconConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// defaultDBPath returns ~/.silicon/runs.db.
func defaultDBPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "runs.db"), nil
}

// openStore opens the configured store. A nil store means recording is off.
func openStore(cfg *config.SiliconConfig) (store.Store, string, error) {
	switch cfg.Store.Kind {
	case "":
		return nil, "", nil
	case store.KindSQLite:
		path := cfg.Store.Path
		if path == "" {
			var err error
			if path, err = defaultDBPath(); err != nil {
				return nil, "", err
			}
		}
		st, err := store.NewSQLiteStore(path)
		if err != nil {
			return nil, "", fmt.Errorf("open store: %w", err)
		}
		return st, path, nil
	default:
		st, err := store.NewStore(cfg.Store.Kind, cfg.Store.Path)
		if err != nil {
			return nil, "", fmt.Errorf("open store: %w", err)
		}
		return st, "", nil
	}
}

// session is a simulator together with the resources it writes to.
type session struct {
	cfg    *config.SiliconConfig
	sim    *engine.Simulator
	logger *slog.Logger
	events *logging.EventLogger
	store  store.Store
	dbPath string
	runID  string
}

type sessionOptions struct {
	record bool
	watch  bool

	// metricsAddr, when set, serves Prometheus metrics until ctx ends.
	metricsAddr string
}

// openSession builds a simulator from cfg. Logs go to stderr so stdout stays
// free for command output and the MCP transport.
func openSession(ctx context.Context, cfg *config.SiliconConfig, opts sessionOptions) (*session, error) {
	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

	eventsDir := cfg.Logging.EventsDir
	if eventsDir == "" {
		if dir, err := config.Dir(); err == nil {
			eventsDir = dir
		}
	}

	s := &session{cfg: cfg, logger: logger}
	if eventsDir != "" {
		s.events = logging.NewEventLogger(eventsDir, cfg.Logging.Level)
	}

	simOpts := engine.Options{Logger: logger, Events: s.events}
	if opts.watch {
		simOpts.Watch = &analytics.Config{}
	}
	if opts.metricsAddr != "" {
		m := metrics.New()
		simOpts.Metrics = m
		go func() {
			if err := metrics.Serve(ctx, opts.metricsAddr, m, logger); err != nil {
				logger.Warn("metrics server stopped", "addr", opts.metricsAddr, "error", err)
			}
		}()
	}

	if opts.record {
		st, path, err := openStore(cfg)
		if err != nil {
			s.events.Close()
			return nil, err
		}
		if st != nil {
			s.store, s.dbPath = st, path
			raw, err := yaml.Marshal(cfg)
			if err != nil {
				s.Close(ctx)
				return nil, fmt.Errorf("marshal config: %w", err)
			}
			rec, err := engine.NewRunRecorder(ctx, st, store.NewRun(cfg.Simulation.Tau, cfg.Simulation.Seed, string(raw)), cfg.Store.WeightsEvery)
			if err != nil {
				s.Close(ctx)
				return nil, fmt.Errorf("create run: %w", err)
			}
			simOpts.Recorder = rec
			s.runID = rec.RunID()
		}
	}

	sim, err := engine.New(cfg, simOpts)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.sim = sim
	return s, nil
}

// Close flushes the recorder and releases the store and event log.
func (s *session) Close(ctx context.Context) error {
	var firstErr error
	if s.sim != nil {
		if err := s.sim.Close(ctx); err != nil {
			firstErr = fmt.Errorf("flush run: %w", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
	}
	s.events.Close()
	return firstErr
}
