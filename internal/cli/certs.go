package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmc3bear/objectivegate/internal/certificate"
)

var (
	certsDB     string
	certsLimit  int
	certsFormat string
)

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.Flags().StringVar(&certsDB, "db", "", "Certificate store path")
	certsCmd.Flags().IntVar(&certsLimit, "limit", 20, "Maximum certificates to list")
	certsCmd.Flags().StringVarP(&certsFormat, "format", "f", "text", "Output format (text|json)")
}

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "List issued verification certificates, newest first",
	RunE:  runCerts,
}

var runCerts = func(cmd *cobra.Command, args []string) error {
	dbPath := certsDB
	if dbPath == "" {
		dbPath = filepath.Join(defaultDataDir(), "certificates.db")
	}

	store, err := certificate.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	certs, err := store.List(certsLimit)
	if err != nil {
		return err
	}

	switch certsFormat {
	case "json":
		out, err := json.MarshalIndent(certs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		if len(certs) == 0 {
			fmt.Println("no certificates issued")
			return nil
		}
		for _, cert := range certs {
			fmt.Printf("%s  %-11s  change %s  tests %d/%d  %s\n",
				cert.IssuedAt.Format(time.RFC3339), cert.Verdict, cert.ChangeID,
				cert.TestsPassed, cert.TestsTotal, cert.ID)
		}
	}
	return nil
}
