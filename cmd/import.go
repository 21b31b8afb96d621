package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/refer/item"
	"github.com/lehigh-university-libraries/refer/store/pgstore"
)

var importMigrate bool

var importCmd = &cobra.Command{
	Use:   "import <records-file>",
	Short: "Load a records file into the PostgreSQL store",
	Long: `Load a YAML or JSON records file into the PostgreSQL store, replacing
records with the same id.

The DSN defaults to store.dsn (REFER_STORE_DSN).

Examples:
  refer import records.yaml --migrate
  refer import records.json --dsn postgres://refer@localhost/refer`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().AddFlagSet(storeFlags)
	importCmd.Flags().BoolVar(&importMigrate, "migrate", false, "Create the schema before importing")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	records, err := item.LoadFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.DSN == "" {
		return fmt.Errorf("no PostgreSQL store configured, pass --dsn or set store.dsn")
	}

	st, err := pgstore.Open(ctx, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	if importMigrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	n, err := st.Import(ctx, records.All())
	if err != nil {
		return fmt.Errorf("imported %d of %d records: %w", n, records.Len(), err)
	}
	slog.Info("imported records", "count", n, "file", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s)\n", n)
	return nil
}
