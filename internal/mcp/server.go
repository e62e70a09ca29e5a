// Package mcp exposes the consultation engine as an MCP server so
// assistants can check treatments against guidelines over stdio. It runs
// standalone: embedded knowledge base, SQLite history, no external services.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/config"
	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/history"
	"github.com/oncoguide-server/internal/knowledge"
	"github.com/oncoguide-server/internal/service"
	"github.com/oncoguide-server/pkg/treatment"
)

// Server wires the consultation service into the MCP SDK.
type Server struct {
	config       *config.LiteConfig
	mcpServer    *mcp.Server
	kb           *knowledge.Snapshot
	consultation domain.ConsultationRunner
	store        history.Store
	logger       *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithHistoryStore sets a custom history store.
func WithHistoryStore(store history.Store) ServerOption {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates an MCP server instance. It requires no external
// databases: history goes to SQLite under the configured data directory.
func NewServer(cfg *config.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	server.logger.SetLevel(level)

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	kb, err := knowledge.LoadEmbedded(server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	server.kb = kb

	matcher, err := service.NewMatcher(treatment.DefaultSynonyms(), cfg.CacheMaxItems, server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create matcher: %w", err)
	}
	server.consultation = service.NewConsultationService(
		server.logger, kb, matcher, service.NewInputValidator())

	if server.store == nil {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.store = store
	}

	serverInfo := &mcp.Implementation{
		Name:    "oncoguide-mcp-server",
		Version: "v1.0.0",
	}
	server.mcpServer = mcp.NewServer(serverInfo, nil)
	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"dataset_version": kb.Version(),
		"combinations":    kb.Len(),
	}).Info("MCP server initialized")

	return server, nil
}

// registerTools registers all consultation tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "check_treatment",
		Description: "Check a proposed cancer treatment against current clinical " +
			"guidelines. Returns an alignment verdict, known risks, guideline " +
			"alternatives, required diagnostic tests and a plain-language summary.",
	}, s.handleCheckTreatment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "list_guidelines",
		Description: "List the cancer type and stage combinations covered by the " +
			"guideline knowledge base, with first-line recommendations and sources.",
	}, s.handleListGuidelines)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "get_consultation_history",
		Description: "Retrieve previously completed consultations, most recent " +
			"first, optionally filtered by user.",
	}, s.handleGetHistory)
}

// Start runs the MCP server over stdio until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting OncoGuide MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
			return err
		}
	}
	return nil
}
