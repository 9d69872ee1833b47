/*-------------------------------------------------------------------------
 *
 * jobs-feed - Local Runner
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"jobs-feed/internal/config"
	"jobs-feed/internal/database"
	"jobs-feed/internal/handler"
	"jobs-feed/internal/logging"

	"github.com/spf13/cobra"
)

var (
	configFile string
	limit      string
	flags      config.CLIFlags
)

var rootCmd = &cobra.Command{
	Use:   "fetch-jobs",
	Short: "Run FetchJobsDataLimited locally",
	Long: `fetch-jobs invokes the FetchJobsDataLimited handler once against the
configured database and prints the status code, the first record and the
number of records fetched.

Configuration is read from the YAML file given with --config (default:
jobs-feed.yaml next to the binary), then JOBSFEED_DB_* and PG* environment
variables, then command line flags.`,
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Path to configuration file")

	f := rootCmd.Flags()
	f.StringVar(&limit, "limit", "", "Number of jobs to fetch (1-100, default 25)")
	f.StringVar(&flags.DBDriver, "db-driver", "", "Database driver (postgres or sqlite)")
	f.StringVar(&flags.DBHost, "db-host", "", "Database host")
	f.IntVar(&flags.DBPort, "db-port", 0, "Database port")
	f.StringVar(&flags.DBName, "db-name", "", "Database name")
	f.StringVar(&flags.DBUser, "db-user", "", "Database user")
	f.StringVar(&flags.DBPassword, "db-password", "", "Database password")
	f.StringVar(&flags.DBSSLMode, "db-sslmode", "", "SSL mode (disable, prefer, require, ...)")
	f.StringVar(&flags.SQLitePath, "sqlite-path", "", "SQLite database file (with --db-driver sqlite)")
	f.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&flags.SecretFile, "secret-file", "", "Key file for encrypted passwords")

	rootCmd.AddCommand(generateKeyCmd, encryptPasswordCmd)
}

func main() {
	// Usage is shown for flag parse errors, but suppressed for runtime errors
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// markSetFlags records which flags were given explicitly
func markSetFlags(cmd *cobra.Command) {
	changed := cmd.Flags().Changed
	flags.ConfigFileSet = configFile != ""
	flags.DBDriverSet = changed("db-driver")
	flags.DBHostSet = changed("db-host")
	flags.DBPortSet = changed("db-port")
	flags.DBNameSet = changed("db-name")
	flags.DBUserSet = changed("db-user")
	flags.DBPassSet = changed("db-password")
	flags.DBSSLSet = changed("db-sslmode")
	flags.SQLitePathSet = changed("sqlite-path")
	flags.LogLevelSet = changed("log-level")
	flags.SecretFileSet = changed("secret-file")
}

// loadConfig resolves the config file path and loads configuration
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	markSetFlags(cmd)

	path := configFile
	if path == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		path = config.GetDefaultConfigPath(exePath)
	}

	cfg, err := config.LoadConfig(path, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logging.SetLevel(level)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	// Flags have been parsed by this point
	cmd.SilenceUsage = true
	defer logging.Sync()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	provider, err := database.NewProvider(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer provider.Close()

	event := &handler.Event{}
	if cmd.Flags().Changed("limit") {
		raw, err := json.Marshal(limit)
		if err != nil {
			return err
		}
		event.Limit = raw
	}

	resp, err := handler.New(provider).Handle(ctx, event)
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), resp)
}

// printReport writes the status code, first record and record count
func printReport(w io.Writer, resp handler.Response) error {
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(resp.Body), &records); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}

	example := "No records found"
	if len(records) > 0 {
		example = string(records[0])
	}

	fmt.Fprintf(w, "Status Code: %d\n", resp.StatusCode)
	fmt.Fprintf(w, "Example Record: %s\n", example)
	fmt.Fprintf(w, "Total Records Fetched: %d\n", resp.RecordsFetched)
	return nil
}
