package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cmc3bear/objectivegate/internal/httpapi"
)

var (
	serveAddr        string
	serveEvidenceDir string
	serveJournal     string
	serveCertDB      string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveEvidenceDir, "evidence-dir", "", "Evidence artifact directory")
	serveCmd.Flags().StringVar(&serveJournal, "journal", "", "Evidence journal path")
	serveCmd.Flags().StringVar(&serveCertDB, "certs-db", "", "Certificate store path")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification gate as an HTTP service",
	Long: "Serves the verification pipeline, objective registry, dashboard, and\n" +
		"certificate store over HTTP, with Prometheus metrics on /metrics and\n" +
		"hot-reload of the objectives config.",
	RunE: runServe,
}

var runServe = func(cmd *cobra.Command, args []string) error {
	st, err := buildStack(serveEvidenceDir, serveJournal, serveCertDB, true)
	if err != nil {
		return err
	}
	defer st.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := httpapi.NewServer(st.registry, st.verifier, st.dashboard, st.certs, objectivesPath)

	reloader, err := httpapi.NewReloader(server, objectivesPath)
	if err != nil {
		return err
	}
	if reloader != nil {
		go func() {
			if err := reloader.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "reloader: %v\n", err)
			}
		}()
	}

	go st.dashboard.Run(ctx)

	return server.Run(ctx, serveAddr)
}
