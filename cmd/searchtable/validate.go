package main

import (
	"fmt"
	"io"
	"os"

	"github.com/artpar/searchtable/bootstrap"
	"github.com/artpar/searchtable/config"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/locale"
	"github.com/artpar/searchtable/core/schema"
	"github.com/artpar/searchtable/core/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and field list before deployment",
	Long: `Validate the searchtable configuration file and the field list it names.

Checks:
  - YAML syntax is valid
  - Required settings are present
  - Every field has a key and a valid type
  - The translation catalog and seed rows parse
  - The row source opens (optional)

Examples:
  searchtable validate
  searchtable validate --config /etc/searchtable/config.yaml --check-source`,
	RunE: runValidate,
}

var validateCheckSource bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckSource, "check-source", false, "check that the row source opens")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)
	fmt.Fprintf(out, "  %s Source: %s\n", checkMark, cfg.Source.Driver)
	fmt.Fprintf(out, "  %s Selection: %s, page size %d\n", checkMark, cfg.Table.SelectionType, cfg.Table.PageSize)

	fields, err := field.ParseFile(cfg.Fields.Path)
	if err != nil {
		fmt.Fprintf(out, "  %s Field list parses\n", crossMark)
		return fmt.Errorf("fields error: %w", err)
	}
	fmt.Fprintf(out, "  %s Field list parses (%d fields)\n", checkMark, len(fields))

	problems := field.Validate(fields)
	layout, _ := schema.Derive(fields)
	if len(problems) > 0 {
		fmt.Fprintf(out, "  %s Fields valid\n", crossMark)
		printDiagnostics(out, problems)
	} else {
		fmt.Fprintf(out, "  %s Fields valid\n", checkMark)
	}
	fmt.Fprintf(out, "  %s Surfaces: %d search (%d more), %d columns, %d dialog inputs\n", checkMark,
		len(layout.Search.Primary)+len(layout.Search.More), len(layout.Search.More),
		len(layout.Table.Fields), len(layout.Dialog.Fields))

	if cfg.Locale.Catalog != "" {
		cat, err := locale.LoadCatalog(cfg.Locale.Catalog)
		if err != nil {
			fmt.Fprintf(out, "  %s Catalog loads\n", crossMark)
			return fmt.Errorf("catalog error: %w", err)
		}
		fmt.Fprintf(out, "  %s Catalog loads (%v)\n", checkMark, cat.Locales())
	}

	if cfg.Source.Seed != "" {
		rows, err := storage.ReadSeed(cfg.Source.Seed)
		if err != nil {
			fmt.Fprintf(out, "  %s Seed rows parse\n", crossMark)
			return fmt.Errorf("seed error: %w", err)
		}
		fmt.Fprintf(out, "  %s Seed rows parse (%d rows)\n", checkMark, len(rows))
	}

	if validateCheckSource {
		src, err := bootstrap.OpenSource(cmd.Context(), cfg.Source, cfg.Table.RowKey, fields, zerolog.Nop())
		if err != nil {
			fmt.Fprintf(out, "  %s Source opens\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			src.Close()
			fmt.Fprintf(out, "  %s Source opens\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	if len(problems) > 0 {
		return fmt.Errorf("%d field problem(s) found", len(problems))
	}
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func printDiagnostics(w io.Writer, diags []field.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "      %s\n", d.String())
	}
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
