package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/silicon/internal/export"
	"github.com/nvandessel/silicon/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded run as an Arrow IPC stream",
		Long: `Export one table of a recorded run from the SQLite store.

Tables are spikes (time, neuron), weights (time, synapse, weight) and
rewards (time, class, correct, wrong, reward, explored, applied, discarded).
The run ID is stored in the schema metadata under "run_id".

Examples:
  silicon export --list                              # Show recorded runs
  silicon export --latest --out spikes.arrow         # Latest run's spikes
  silicon export --run <id> --table rewards --out rewards.arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			runID, _ := cmd.Flags().GetString("run")
			latest, _ := cmd.Flags().GetBool("latest")
			list, _ := cmd.Flags().GetBool("list")
			out, _ := cmd.Flags().GetString("out")
			tableName, _ := cmd.Flags().GetString("table")
			dbPath, _ := cmd.Flags().GetString("db")

			table, err := export.ParseTable(tableName)
			if err != nil {
				return err
			}
			if !list && (runID != "") == latest {
				return errors.New("exactly one of --run or --latest is required")
			}

			if dbPath == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dbPath = cfg.Store.Path
			}
			if dbPath == "" {
				if dbPath, err = defaultDBPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no recorded runs at %s: %w", dbPath, err)
			}

			st, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			ctx := context.Background()
			if list {
				return listRuns(cmd, st, jsonOut)
			}

			var run *store.Run
			if latest {
				run, err = st.LatestRun(ctx)
			} else {
				run, err = st.GetRun(ctx, runID)
			}
			if err != nil {
				return fmt.Errorf("find run: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			rows, err := export.WriteRun(ctx, st, run.ID, table, w)
			if err != nil {
				return fmt.Errorf("export %s: %w", table, err)
			}

			// Status goes to stderr when the stream itself is on stdout.
			status := cmd.OutOrStdout()
			if out == "" || out == "-" {
				status = cmd.ErrOrStderr()
			}
			if jsonOut {
				return json.NewEncoder(status).Encode(map[string]interface{}{
					"run_id": run.ID,
					"table":  table,
					"rows":   rows,
					"out":    out,
				})
			}
			fmt.Fprintf(status, "Exported %s %s rows of run %s\n", humanize.Comma(int64(rows)), table, run.ID)
			return nil
		},
	}

	cmd.Flags().String("run", "", "Run ID to export")
	cmd.Flags().Bool("latest", false, "Export the most recently started run")
	cmd.Flags().Bool("list", false, "List recorded runs instead of exporting")
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	cmd.Flags().String("table", string(export.TableSpikes), "Table to export: spikes, weights or rewards")
	cmd.Flags().String("db", "", "SQLite database path (default store.path or ~/.silicon/runs.db)")

	return cmd
}

func listRuns(cmd *cobra.Command, st store.Store, jsonOut bool) error {
	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if jsonOut {
		if runs == nil {
			runs = []store.Run{}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		})
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-14s  tau=%g seed=%d\n", r.ID, humanize.Time(r.StartedAt), r.Tau, r.Seed)
	}
	return nil
}
