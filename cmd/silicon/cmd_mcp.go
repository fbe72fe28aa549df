package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the simulator over MCP on stdio",
		Long: `Run an MCP server on stdin/stdout that owns one simulator.

Tools:
  silicon_step      advance the network, optionally injecting current first
  silicon_status    clock, counters and per-layer activity
  silicon_neuron    one neuron's state and recent membrane trace
  silicon_synapses  synapses touching a neuron, with recent weight trace

Tool calls are appended to ~/.silicon/audit.jsonl. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noAudit, _ := cmd.Flags().GetBool("no-audit")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sess, err := openSession(ctx, cfg, sessionOptions{record: true, watch: true, metricsAddr: metricsAddr})
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			auditDir := ""
			if !noAudit {
				if auditDir, err = config.Dir(); err != nil {
					return err
				}
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "silicon",
				Version:  version,
				AuditDir: auditDir,
				Logger:   sess.logger,
			}, sess.sim)
			if err != nil {
				return fmt.Errorf("create MCP server: %w", err)
			}
			defer server.Close()

			sess.logger.Info("mcp server starting", "version", version, "run_id", sess.runID)
			if err := server.Run(ctx); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-audit", false, "Disable the tool call audit log")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}
