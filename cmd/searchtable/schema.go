package main

import (
	"fmt"
	"strings"

	"github.com/artpar/searchtable/config"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/formatter"
	"github.com/artpar/searchtable/core/locale"
	"github.com/artpar/searchtable/core/schema"
	"github.com/spf13/cobra"
)

var (
	schemaFormat string
	schemaLocale string
	schemaFields string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the search, table and dialog surfaces derived from the field list",
	Long: `Derive the three surfaces from the configured field list and print them.

Titles are translated with the configured catalog when --locale is given.
Problems found while deriving (missing keys, duplicates, unknown types) are
listed after the surfaces.

Examples:
  searchtable schema
  searchtable schema --format json --locale de
  searchtable schema --fields other-fields.yaml`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", "table", "output format ("+strings.Join(formatter.List(), ", ")+")")
	schemaCmd.Flags().StringVar(&schemaLocale, "locale", "", "translate titles into this locale")
	schemaCmd.Flags().StringVar(&schemaFields, "fields", "", "field file to use instead of the configured one")
}

func runSchema(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(schemaFormat)
	if !ok {
		return fmt.Errorf("unknown format %q", schemaFormat)
	}

	path := schemaFields
	var catalog *locale.Catalog
	if path == "" || schemaLocale != "" {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return err
		}
		if path == "" {
			path = cfg.Fields.Path
		}
		if cfg.Locale.Catalog != "" {
			if catalog, err = locale.LoadCatalog(cfg.Locale.Catalog); err != nil {
				return err
			}
		}
	}

	fields, err := field.ParseFile(path)
	if err != nil {
		return err
	}

	layout, diags := schema.Derive(fields)
	if schemaLocale != "" && catalog != nil {
		layout = schema.Localize(layout, catalog, schemaLocale)
	}
	return f.FormatLayout(cmd.OutOrStdout(), layout, diags, formatter.FormatOptions{})
}
