package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	gatemcp "github.com/cmc3bear/objectivegate/internal/mcp"
)

var (
	mcpEvidenceDir string
	mcpJournal     string
	mcpCertDB      string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpEvidenceDir, "evidence-dir", "", "Evidence artifact directory")
	mcpCmd.Flags().StringVar(&mcpJournal, "journal", "", "Evidence journal path")
	mcpCmd.Flags().StringVar(&mcpCertDB, "certs-db", "", "Certificate store path")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server over stdio",
	Long: "Exposes the verification pipeline as Model Context Protocol tools so a\n" +
		"coding agent can verify, dry-run, and inspect changes against the\n" +
		"objective registry from inside its own session.",
	RunE: runMCP,
}

var runMCP = func(cmd *cobra.Command, args []string) error {
	dataDir := defaultDataDir()
	evidenceDir := mcpEvidenceDir
	if evidenceDir == "" {
		evidenceDir = filepath.Join(dataDir, "evidence")
	}
	journalPath := mcpJournal
	if journalPath == "" {
		journalPath = filepath.Join(dataDir, "journal.jsonl")
	}
	certDBPath := mcpCertDB
	if certDBPath == "" {
		certDBPath = filepath.Join(dataDir, "certificates.db")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	server, err := gatemcp.New(gatemcp.Config{
		ObjectivesPath: objectivesPath,
		EvidenceDir:    evidenceDir,
		JournalPath:    journalPath,
		CertDBPath:     certDBPath,
	})
	if err != nil {
		return err
	}
	defer server.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go server.Dashboard().Run(ctx)

	return server.Run(ctx)
}
