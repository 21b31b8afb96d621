package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/refer/convert"
	"github.com/lehigh-university-libraries/refer/crosswalk"
	"github.com/lehigh-university-libraries/refer/virtual"
)

var crosswalksCmd = &cobra.Command{
	Use:   "crosswalks",
	Short: "Manage crosswalks",
	Long: `List and inspect the configured crosswalks.

Examples:
  refer crosswalks list
  refer crosswalks show ris
  refer crosswalks functions`,
}

var crosswalksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured crosswalks",
	RunE:  runCrosswalksList,
}

var crosswalksShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a crosswalk and its parsed template",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrosswalksShow,
}

var crosswalksFunctionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List virtual fields, converters and post-processors",
	Args:  cobra.NoArgs,
	RunE:  runCrosswalksFunctions,
}

func init() {
	crosswalksCmd.AddCommand(crosswalksListCmd)
	crosswalksCmd.AddCommand(crosswalksShowCmd)
	crosswalksCmd.AddCommand(crosswalksFunctionsCmd)
}

func runCrosswalksList(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Available crosswalks:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-20s %-40s %s\n", "NAME", "MIME TYPE", "MULTIPLE")
	fmt.Fprintf(out, "  %-20s %-40s %s\n", "----", "---------", "--------")
	for _, cw := range cfg.Crosswalks {
		multiple := "no"
		if cw.MultipleItemsTemplate != "" {
			multiple = "yes"
		}
		fmt.Fprintf(out, "  %-20s %-40s %s\n", cw.Name, cw.MIMEType, multiple)
	}
	return nil
}

func runCrosswalksShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cwc, ok := cfg.Crosswalk(args[0])
	if !ok {
		return fmt.Errorf("crosswalk not found: %s", args[0])
	}

	data, err := yaml.Marshal(cwc)
	if err != nil {
		return fmt.Errorf("marshaling crosswalk: %w", err)
	}
	fmt.Fprintf(out, "# Crosswalk: %s\n\n", cwc.Name)
	fmt.Fprint(out, string(data))

	a := &app{cfg: cfg}
	cw, err := buildCrosswalk(cfg, cwc, a.deps())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\n# Template")
	printLines(out, cw.Template())
	if cw.SupportsMultipleItems() {
		fmt.Fprintln(out, "\n# Multiple items template")
		printLines(out, cw.MultipleItemsTemplate())
	}
	return nil
}

func printLines(out io.Writer, lines []crosswalk.Line) {
	for i, line := range lines {
		detail := line.Field
		if line.Group != "" && line.Kind != crosswalk.MetadataField && line.Kind != crosswalk.VirtualField {
			detail = line.Group
		}
		fmt.Fprintf(out, "  %3d %-20s %s\n", i+1, line.Kind, detail)
	}
}

func runCrosswalksFunctions(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	printNames := func(title string, names []string) {
		fmt.Fprintf(out, "%s:\n", title)
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out)
	}
	printNames("Virtual fields", virtual.Default().Names())
	printNames("Converters", convert.Names())
	printNames("Post-processors", convert.PostProcessorNames())
	return nil
}
