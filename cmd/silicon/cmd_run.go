package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/silicon/internal/checkpoint"
	"github.com/nvandessel/silicon/internal/engine"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured network",
		Long: `Build the configured network and advance it tick by tick.

Without --ticks the run continues until the clock budget is spent, or
until interrupted when simulation.run_indefinitely is set. With a store
the run's spikes, rewards and weight snapshots are recorded.

Examples:
  silicon run --ticks 1000                   # 10 simulated seconds at tau=0.01
  silicon run --store sqlite                 # record to ~/.silicon/runs.db
  silicon run --store sqlite --db ./runs.db --record-weights-every 50
  silicon run --ticks 2000 --save-weights trained.ckpt
  silicon run --load-weights trained.ckpt    # continue from learned weights`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ticks, _ := cmd.Flags().GetInt("ticks")
			loadPath, _ := cmd.Flags().GetString("load-weights")
			savePath, _ := cmd.Flags().GetString("save-weights")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("store") {
				cfg.Store.Kind, _ = cmd.Flags().GetString("store")
			}
			if cmd.Flags().Changed("db") {
				cfg.Store.Path, _ = cmd.Flags().GetString("db")
				if cfg.Store.Kind == "" {
					cfg.Store.Kind = "sqlite"
				}
			}
			if cmd.Flags().Changed("record-weights-every") {
				cfg.Store.WeightsEvery, _ = cmd.Flags().GetInt("record-weights-every")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if ticks < 0 {
				return fmt.Errorf("--ticks must be non-negative, got %d", ticks)
			}
			if ticks == 0 {
				ticks = math.MaxInt
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					cancel()
				case <-ctx.Done():
				}
			}()

			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			sess, err := openSession(ctx, cfg, sessionOptions{record: true, metricsAddr: metricsAddr})
			if err != nil {
				return err
			}
			if loadPath != "" {
				if err := restoreWeights(sess, loadPath); err != nil {
					sess.Close(ctx)
					return err
				}
			}

			sum, runErr := sess.sim.Run(ctx, ticks)
			if errors.Is(runErr, context.Canceled) {
				sess.logger.Info("run interrupted", "ticks", sum.Ticks, "time", sum.Time)
				runErr = nil
			}
			// Flush with a fresh context so an interrupt still persists the tail.
			if err := sess.Close(context.Background()); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return fmt.Errorf("run failed: %w", runErr)
			}
			if savePath != "" {
				if err := saveWeights(sess, savePath); err != nil {
					return err
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"summary": sum,
					"stats":   sess.sim.Stats(),
					"run_id":  sess.runID,
					"db":      sess.dbPath,
				})
			}
			printRunSummary(cmd, sess, sum)
			return nil
		},
	}

	cmd.Flags().Int("ticks", 0, "Number of ticks to run (0 = until the budget is spent)")
	cmd.Flags().String("store", "", "Record the run: memory or sqlite")
	cmd.Flags().String("db", "", "SQLite database path (default ~/.silicon/runs.db)")
	cmd.Flags().Int("record-weights-every", 0, "Record a weight snapshot every N ticks")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().String("load-weights", "", "Restore synapse state from a checkpoint before running")
	cmd.Flags().String("save-weights", "", "Write a synapse checkpoint after the run")

	return cmd
}

func restoreWeights(sess *session, path string) error {
	c, err := checkpoint.ReadWithLimit(path, sess.cfg.Checkpoint.MaxSize)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	if _, err := sess.sim.Restore(c); err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}
	return nil
}

func saveWeights(sess *session, path string) error {
	c := sess.sim.Checkpoint()
	c.Metadata = map[string]string{
		"seed": strconv.FormatUint(sess.cfg.Simulation.Seed, 10),
	}
	if sess.runID != "" {
		c.Metadata["run_id"] = sess.runID
	}
	if err := checkpoint.Write(path, c); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	sess.logger.Info("saved checkpoint", "path", path, "synapses", len(c.Synapses), "time", c.Time)
	return nil
}

func printRunSummary(cmd *cobra.Command, sess *session, sum engine.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ran %s ticks to t=%ss\n", humanize.Comma(int64(sum.Ticks)), humanize.FtoaWithDigits(sum.Time, 3))
	fmt.Fprintf(out, "  spikes:  %s\n", humanize.Comma(int64(sum.Spikes)))
	fmt.Fprintf(out, "  rewards: %s\n", humanize.Comma(int64(sum.Rewards)))
	fmt.Fprintf(out, "  pruned:  %s\n", humanize.Comma(int64(sum.Pruned)))
	if sum.LastReward != nil {
		fmt.Fprintf(out, "  last reward: %.4f (class %d, %s correct / %s wrong)\n",
			sum.LastReward.Reward, sum.LastReward.Class,
			humanize.Ftoa(sum.LastReward.Correct), humanize.Ftoa(sum.LastReward.Wrong))
	}
	if sum.Paused {
		fmt.Fprintln(out, "Clock budget exhausted.")
	}
	if sess.runID != "" {
		if sess.dbPath != "" {
			fmt.Fprintf(out, "Recorded run %s to %s\n", sess.runID, sess.dbPath)
		} else {
			fmt.Fprintf(out, "Recorded run %s\n", sess.runID)
		}
	}
}
