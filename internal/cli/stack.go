package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmc3bear/objectivegate/internal/certificate"
	"github.com/cmc3bear/objectivegate/internal/dashboard"
	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/objective"
	"github.com/cmc3bear/objectivegate/internal/pipeline"
)

// stack is the assembled component set shared by verify and serve.
type stack struct {
	registry  *objective.Registry
	verifier  *pipeline.Verifier
	dashboard *dashboard.Dashboard
	journal   *evidence.Journal
	certs     *certificate.Store
}

// defaultDataDir is where evidence, the journal, and the certificate store
// live unless overridden.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".objectivegate"
	}
	return filepath.Join(home, ".objectivegate")
}

// buildStack loads objectives and opens every persistence sink. Empty paths
// fall back under the data dir.
func buildStack(evidenceDir, journalPath, certDBPath string, withMetrics bool) (*stack, error) {
	dataDir := defaultDataDir()
	if evidenceDir == "" {
		evidenceDir = filepath.Join(dataDir, "evidence")
	}
	if journalPath == "" {
		journalPath = filepath.Join(dataDir, "journal.jsonl")
	}
	if certDBPath == "" {
		certDBPath = filepath.Join(dataDir, "certificates.db")
	}
	if err := os.MkdirAll(filepath.Dir(journalPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	registry, err := objective.Load(objectivesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load objectives: %w", err)
	}

	store, err := evidence.NewStore(evidenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create evidence store: %w", err)
	}

	journal, err := evidence.Open(journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open evidence journal: %w", err)
	}

	certs, err := certificate.NewStore(certDBPath)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("failed to open certificate store: %w", err)
	}

	verifier, err := pipeline.NewVerifier(pipeline.Config{
		Registry:      registry,
		EvidenceStore: store,
		Journal:       journal,
		Certificates:  certs,
	})
	if err != nil {
		journal.Close()
		certs.Close()
		return nil, err
	}

	var opts []dashboard.Option
	if withMetrics {
		opts = append(opts, dashboard.WithMetrics(dashboard.NewMetrics(nil)))
	}
	dash := dashboard.New(registry, opts...)
	verifier.Subscribe(dash)

	return &stack{
		registry:  registry,
		verifier:  verifier,
		dashboard: dash,
		journal:   journal,
		certs:     certs,
	}, nil
}

// close releases the stack's persistence sinks. Safe to call twice.
func (s *stack) close() {
	if s.journal != nil {
		s.journal.Close()
		s.journal = nil
	}
	if s.certs != nil {
		s.certs.Close()
		s.certs = nil
	}
}
