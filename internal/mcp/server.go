package mcp

import (
	"context"
	"errors"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/ratelimit"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// Server wraps the MCP SDK server around a simulation session.
type Server struct {
	server      *sdk.Server
	session     *simulation.Session
	auditLogger *AuditLogger
	budget      ratelimit.Budget
	exportDir   string
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name      string // Server name (e.g., "swabber")
	Version   string // Server version
	Session   *simulation.Session
	AuditDir  string           // directory for mcp-audit.jsonl; empty disables auditing
	Budget    ratelimit.Budget // nil uses ratelimit.DefaultBudget
	ExportDir string           // sim_export writes only below this directory; empty disables it
	Logger    *slog.Logger
}

// NewServer creates a new MCP server with the simulation tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("mcp: config has no session")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	budget := cfg.Budget
	if budget == nil {
		budget = ratelimit.DefaultBudget()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:      mcpServer,
		session:     cfg.Session,
		auditLogger: NewAuditLogger(cfg.AuditDir),
		budget:      budget,
		exportDir:   cfg.ExportDir,
		logger:      logger,
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until the client disconnects or the context is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
