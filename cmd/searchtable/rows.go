package main

import (
	"fmt"
	"strings"

	"github.com/artpar/searchtable/bootstrap"
	"github.com/artpar/searchtable/config"
	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/formatter"
	"github.com/artpar/searchtable/core/schema"
	"github.com/artpar/searchtable/core/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	rowsFormat   string
	rowsPage     int
	rowsPageSize int
	rowsFilters  map[string]string
	rowsSearch   map[string]string
	rowsSorts    []string
	rowsColumns  []string
	rowsMaxWidth int
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Print a page of rows from the configured source",
	Long: `Load one page of rows the way a table session would and print it.

Default filters and sorts come from the field list. Flags replace them.

Examples:
  searchtable rows
  searchtable rows --page 2 --page-size 20
  searchtable rows --filter status=open --sort amount:descend
  searchtable rows --search title=rent --format json`,
	RunE: runRows,
}

func init() {
	rootCmd.AddCommand(rowsCmd)

	rowsCmd.Flags().StringVarP(&rowsFormat, "format", "f", "table", "output format ("+strings.Join(formatter.List(), ", ")+")")
	rowsCmd.Flags().IntVar(&rowsPage, "page", 1, "page number")
	rowsCmd.Flags().IntVar(&rowsPageSize, "page-size", 0, "page size (default: table.page_size)")
	rowsCmd.Flags().StringToStringVar(&rowsFilters, "filter", nil, "column filter, key=value")
	rowsCmd.Flags().StringToStringVar(&rowsSearch, "search", nil, "search value, key=value")
	rowsCmd.Flags().StringSliceVar(&rowsSorts, "sort", nil, "sort, key:ascend or key:descend")
	rowsCmd.Flags().StringSliceVar(&rowsColumns, "columns", nil, "columns to print")
	rowsCmd.Flags().IntVar(&rowsMaxWidth, "max-width", 40, "truncate values longer than this (0 = no limit)")
}

func runRows(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(rowsFormat)
	if !ok {
		return fmt.Errorf("unknown format %q", rowsFormat)
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}
	fields, err := field.ParseFile(cfg.Fields.Path)
	if err != nil {
		return err
	}
	layout, _ := schema.Derive(fields)

	params, err := rowsParams(cfg, layout)
	if err != nil {
		return err
	}

	src, err := bootstrap.OpenSource(cmd.Context(), cfg.Source, cfg.Table.RowKey, fields, zerolog.Nop())
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := src.Loader.Load(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}

	rows := make([]map[string]any, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = r
	}
	return f.FormatRows(cmd.OutOrStdout(), layout.Table.Fields, rows, res.Total, formatter.FormatOptions{
		Columns:  rowsColumns,
		MaxWidth: rowsMaxWidth,
	})
}

// rowsParams builds the load parameters from the field defaults and flags.
func rowsParams(cfg *config.Config, layout schema.Layout) (table.LoadParams, error) {
	p := table.LoadParams{
		Filters: defaults.Filters(layout.Table),
		Sorts:   defaults.Sorts(layout.Table),
		Search:  map[string]any{},
		Pagination: table.Pagination{
			Current:  max(rowsPage, 1),
			PageSize: cfg.Table.PageSize,
		},
	}
	if rowsPageSize > 0 {
		p.Pagination.PageSize = rowsPageSize
	}
	if p.Filters == nil {
		p.Filters = defaults.FilterState{}
	}
	for k, v := range rowsFilters {
		p.Filters[k] = v
	}
	for k, v := range rowsSearch {
		p.Search[k] = v
	}

	if len(rowsSorts) > 0 {
		p.Sorts = nil
		for _, s := range rowsSorts {
			key, order, _ := strings.Cut(s, ":")
			if order == "" {
				order = string(field.Ascend)
			}
			item := defaults.SortItem{Key: key, Order: field.SortOrder(order)}
			if key == "" || !item.Order.IsValid() {
				return table.LoadParams{}, fmt.Errorf("invalid sort %q: want key:ascend or key:descend", s)
			}
			p.Sorts = append(p.Sorts, item)
		}
	}
	return p, nil
}
