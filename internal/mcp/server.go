// Package mcp exposes the verification pipeline over the Model Context
// Protocol so coding agents can gate their own changes.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cmc3bear/objectivegate/internal/certificate"
	"github.com/cmc3bear/objectivegate/internal/dashboard"
	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/objective"
	"github.com/cmc3bear/objectivegate/internal/pipeline"
)

// Config holds MCP server configuration.
type Config struct {
	ObjectivesPath string
	EvidenceDir    string
	JournalPath    string
	CertDBPath     string
}

// Server wraps the MCP SDK server around the verification components.
type Server struct {
	mcpServer *mcpsdk.Server
	registry  *objective.Registry
	verifier  *pipeline.Verifier
	dashboard *dashboard.Dashboard
	journal   *evidence.Journal
	certs     *certificate.Store
}

// New builds the full component stack and registers the tools.
func New(cfg Config) (*Server, error) {
	registry, err := objective.Load(cfg.ObjectivesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load objectives: %w", err)
	}

	store, err := evidence.NewStore(cfg.EvidenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create evidence store: %w", err)
	}

	var journal *evidence.Journal
	if cfg.JournalPath != "" {
		journal, err = evidence.Open(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open evidence journal: %w", err)
		}
	}

	var certs *certificate.Store
	if cfg.CertDBPath != "" {
		certs, err = certificate.NewStore(cfg.CertDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open certificate store: %w", err)
		}
	}

	verifier, err := pipeline.NewVerifier(pipeline.Config{
		Registry:      registry,
		EvidenceStore: store,
		Journal:       journal,
		Certificates:  certs,
	})
	if err != nil {
		return nil, err
	}

	dash := dashboard.New(registry)
	verifier.Subscribe(dash)

	s := &Server{
		registry:  registry,
		verifier:  verifier,
		dashboard: dash,
		journal:   journal,
		certs:     certs,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "objectivegate",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the persistence sinks.
func (s *Server) Close() error {
	var firstErr error
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			firstErr = err
		}
	}
	if s.certs != nil {
		if err := s.certs.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// registerTools adds all objectivegate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "objectivegate_verify",
		Description: "Run the full verification pipeline on a proposed change: classify objective impacts, generate and execute tests, and return the verdict with a signed certificate.",
	}, s.handleVerify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "objectivegate_check",
		Description: "Dry-run a change against the objective registry: predicted impacts, classification, and whether it would be vetoed. No tests run, nothing is persisted.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "objectivegate_status",
		Description: "Report current objective health, trends, active alerts, and rolling verification metrics.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "objectivegate_update_objective",
		Description: "Set an objective's current value. This is the sole mutation path into the registry and simulates a telemetry feed.",
	}, s.handleUpdateObjective)
}
