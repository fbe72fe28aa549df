// Package mcp exposes a running simulator to MCP clients over stdio.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/logging"
	"github.com/nvandessel/silicon/internal/ratelimit"
)

// Server wraps the MCP SDK server around one Simulator.
type Server struct {
	server       *sdk.Server
	sim          *engine.Simulator
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "silicon")
	Version string // Server version

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates an MCP server with the silicon tools registered.
func NewServer(cfg *Config, sim *engine.Simulator) (*Server, error) {
	if sim == nil {
		return nil, errors.New("mcp: simulator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		sim:          sim,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	return s, nil
}

// Run serves over stdio until the client disconnects, ctx is cancelled or
// the process is signalled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server listening on stdio")
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Close releases the audit log. The simulator is owned by the caller.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
