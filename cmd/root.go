// Package cmd holds the skladtrack command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"skladtrack/internal/config"
	"skladtrack/internal/engine"
	"skladtrack/store"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables debug logging.
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "skladtrack",
	Short: "skladtrack tracks manufacturing tasks with a full audit history.",
	Long: `skladtrack manages manufacturing tasks from creation through completion
to archival. Every field change is recorded in an audit ledger and can be
reverted. Tasks can be imported in bulk from Excel workbooks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.skladtrack.yaml or $HOME/.skladtrack.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the application configuration honoring the --config flag.
func loadConfig() (*config.AppConfig, error) {
	return config.Load(cfgFile)
}

// openEngine opens the configured store and wires the mutation engine on top
// of it. The caller owns the store and must Close it.
func openEngine(cfg *config.AppConfig) (*store.SQLiteStore, *engine.Engine, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	eng := engine.New(st, st, engine.SystemClock(), cfg.Actor)
	return st, eng, nil
}
