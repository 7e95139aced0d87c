package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "searchtable",
	Short: "Schema-driven search tables over HTTP",
	Long: `searchtable turns one field list into a search panel, a table and a
create/edit dialog, and serves live table sessions over a JSON:API surface.

Quick start:
  searchtable validate  # Check the configuration and field list
  searchtable serve     # Start the HTTP server

Inspection:
  searchtable schema    # Print the derived surfaces
  searchtable rows      # Print a page of rows from the configured source`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "searchtable.yaml", "config file path")
}
