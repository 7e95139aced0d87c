package main

import (
	"fmt"
	"os"

	"github.com/artpar/searchtable/bootstrap"
	"github.com/artpar/searchtable/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the searchtable HTTP server.

The server will:
  - Load configuration from searchtable.yaml (or --config)
  - Or load configuration from SEARCHTABLE_* environment variables
  - Open the configured row source (memory, sqlite or postgres)
  - Serve table sessions under /sessions and the derived schema under /_schema
  - Reload the field list on SIGHUP, and on file change when fields.watch is set

Environment variables (for Docker deployments):
  SEARCHTABLE_FIELDS_PATH     - Field descriptor file (required)
  SEARCHTABLE_SOURCE_DRIVER   - memory, sqlite or postgres
  SEARCHTABLE_SOURCE_DSN      - Database DSN
  SEARCHTABLE_SOURCE_TABLE    - Table to read rows from
  SEARCHTABLE_SERVER_PORT     - Server port (default: 8080)
  SEARCHTABLE_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  searchtable serve
  searchtable serve --config /etc/searchtable/config.yaml

  # Docker (env vars only):
  SEARCHTABLE_FIELDS_PATH=/data/fields.yaml searchtable serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	if !hasConfigFile && !config.HasEnvConfig() {
		fmt.Println("No configuration found.")
		fmt.Println()
		fmt.Printf("Option 1: Create %s with a fields.path entry\n", cfgFile)
		fmt.Println("Option 2: Set SEARCHTABLE_FIELDS_PATH environment variable")
		fmt.Println()
		fmt.Println("Example (env vars):")
		fmt.Println("  SEARCHTABLE_FIELDS_PATH=fields.yaml searchtable serve")
		return nil
	}
	if !hasConfigFile {
		fmt.Println("Running with environment variables (no config file)")
	}

	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
