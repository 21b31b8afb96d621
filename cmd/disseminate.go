package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
)

var (
	disseminateOutput string
	disseminateAll    bool
)

var disseminateCmd = &cobra.Command{
	Use:   "disseminate <crosswalk> [id...]",
	Short: "Render records through a crosswalk",
	Long: `Render records through a crosswalk.

A single id is rendered with the crosswalk template. Several ids, or --all,
are rendered together with its multiple items template.

Examples:
  refer disseminate ris 4f3c1d2e-...
  refer disseminate bibtex id-1 id-2 -o export.bib
  refer disseminate ris --all`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDisseminate,
}

func init() {
	disseminateCmd.Flags().AddFlagSet(storeFlags)
	disseminateCmd.Flags().StringVarP(&disseminateOutput, "output", "o", "", "Output file (default: stdout)")
	disseminateCmd.Flags().BoolVar(&disseminateAll, "all", false, "Disseminate every record of the store")
}

func runDisseminate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cw, err := a.registry.Lookup(args[0])
	if err != nil {
		return err
	}
	ids := args[1:]
	if len(ids) == 0 && !disseminateAll {
		return fmt.Errorf("no record ids given, pass ids or --all")
	}
	if len(ids) > 0 && disseminateAll {
		return fmt.Errorf("--all cannot be combined with record ids")
	}

	var w io.Writer = cmd.OutOrStdout()
	if disseminateOutput != "" {
		f, createErr := os.Create(disseminateOutput)
		if createErr != nil {
			return fmt.Errorf("creating output file: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output file: %w", cerr)
			}
		}()
		w = f
	}

	switch {
	case disseminateAll:
		records := a.searcher.Search(ctx, discovery.Query{ObjectType: item.TypeItem})
		err = cw.DisseminateAll(ctx, records, w)
	case len(ids) == 1:
		var it *item.Item
		it, err = a.store.Find(ctx, ids[0])
		if err == nil {
			err = cw.Disseminate(ctx, it, w)
		}
	default:
		err = cw.DisseminateAll(ctx, item.Lookup(ctx, a.store, ids), w)
	}
	if err != nil {
		return err
	}

	if disseminateOutput != "" {
		slog.Info("wrote export", "crosswalk", cw.Name(), "path", disseminateOutput)
	}
	return nil
}
