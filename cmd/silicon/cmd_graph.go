package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/silicon/internal/export"
	"github.com/nvandessel/silicon/internal/network"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Visualize the configured network",
		Long: `Build the configured network and output it in DOT (Graphviz) or JSON format.

With --ticks the network is run first so node colors reflect activity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			ticks, _ := cmd.Flags().GetInt("ticks")

			switch export.Format(format) {
			case export.FormatDOT, export.FormatJSON:
			default:
				return fmt.Errorf("unsupported format %q (use 'dot' or 'json')", format)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			sess, err := openSession(ctx, cfg, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			if ticks > 0 {
				if _, err := sess.sim.Run(ctx, ticks); err != nil {
					return fmt.Errorf("run: %w", err)
				}
			}

			var (
				dot    string
				result map[string]interface{}
			)
			sess.sim.Graph(func(g *network.Graph) {
				if export.Format(format) == export.FormatDOT {
					dot = export.RenderDOT(g)
				} else {
					result = export.RenderJSON(g)
				}
			})

			if export.Format(format) == export.FormatDOT {
				fmt.Fprint(cmd.OutOrStdout(), dot)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encode JSON: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().Int("ticks", 0, "Ticks to run before rendering")

	return cmd
}
