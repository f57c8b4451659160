package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"skladtrack/internal/engine"
	"skladtrack/store"
)

var (
	listArchived    bool
	listStatus      string
	listPriority    string
	listResponsible string
	listSearch      string
	listOverdue     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `Lists tasks in a table. By default only active (non-archived) tasks are
shown, newest first.`,
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

		filter := store.TaskFilter{
			Archived:    listArchived,
			Search:      listSearch,
			Status:      listStatus,
			Priority:    listPriority,
			Responsible: listResponsible,
		}
		if listOverdue {
			filter.OverdueAt = engine.SystemClock().Now()
		}

		tasks, err := st.ListTasks(filter, store.DefaultTaskSort)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNUMBER\tNAME\tSTATUS\tPRIORITY\tRESPONSIBLE\tDUE")
		for _, t := range tasks {
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Number, t.Name, t.Status, t.Priority, t.Responsible, due)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "show archived tasks instead of active ones")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by exact status")
	listCmd.Flags().StringVar(&listPriority, "priority", "", "filter by exact priority")
	listCmd.Flags().StringVar(&listResponsible, "responsible", "", "filter by responsible person")
	listCmd.Flags().StringVar(&listSearch, "search", "", "substring search over number, name, description and responsible")
	listCmd.Flags().BoolVar(&listOverdue, "overdue", false, "only tasks past their due date and not done")
	rootCmd.AddCommand(listCmd)
}
