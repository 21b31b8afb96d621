package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateVerbose bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and every crosswalk template",
	Long: `Load the configuration and parse every crosswalk template without
rendering anything. Reports unknown virtual fields, unbalanced groups,
unknown converters and missing files.

Examples:
  refer validate
  refer validate --config /etc/refer/refer.yaml --verbose`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Show template details")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	configurations, err := loadConfigurations(cfg)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, configurations: configurations}
	failed := 0
	for _, cwc := range cfg.Crosswalks {
		cw, err := buildCrosswalk(cfg, cwc, a.deps())
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", cwc.Name, err)
			continue
		}
		fmt.Fprintf(out, "✓ %s\n", cw.Name())
		if validateVerbose {
			fmt.Fprintf(out, "    Template: %s (%d lines)\n", cwc.Template, len(cw.Template()))
			if cw.SupportsMultipleItems() {
				fmt.Fprintf(out, "    Multiple items: %s (%d lines)\n", cwc.MultipleItemsTemplate, len(cw.MultipleItemsTemplate()))
			}
			if len(cwc.Converters) > 0 {
				fmt.Fprintf(out, "    Converters: %s\n", strings.Join(cwc.Converters, ", "))
			}
			if len(cwc.PostProcessors) > 0 {
				fmt.Fprintf(out, "    Post-processors: %s\n", strings.Join(cwc.PostProcessors, ", "))
			}
		}
	}

	fmt.Fprintf(out, "\n%d crosswalk(s), %d invalid\n", len(cfg.Crosswalks), failed)
	if failed > 0 {
		return fmt.Errorf("%d crosswalk(s) failed validation", failed)
	}
	return nil
}
