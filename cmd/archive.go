package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"skladtrack/internal/engine"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive tasks done longer than the cooldown",
	Long: `Runs one archival pass: every task that has been in "done" longer than
the configured cooldown is marked archived and drops out of the default task
listing. The pass is idempotent, so running it again immediately archives
nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, _, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		archiver := engine.NewArchiver(st, st, engine.SystemClock(), cfg.Cooldown())
		count, err := archiver.Run()
		if err != nil {
			return err
		}

		fmt.Printf("Archived %d task(s).\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
