package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"skladtrack/internal/xlsx"
)

var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Import tasks from an Excel workbook",
	Long: `Reads the first sheet of an Excel workbook and creates one task per data
row. The header row names the columns; "number" and "name" are required.
Rows that fail validation or collide with an existing task number are
reported and skipped, the rest are imported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		path := args[0]
		src, err := xlsx.Open(afero.NewOsFs(), path)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		result, err := eng.ImportBatch(src, filepath.Base(path))
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d task(s).\n", result.Created)
		for _, e := range result.Errors {
			fmt.Println(" -", e)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
