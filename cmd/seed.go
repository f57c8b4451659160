package cmd

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"skladtrack/internal/engine"
	"skladtrack/models"
	"skladtrack/store"
)

//go:embed seed.yaml
var seedData []byte

// seedTask mirrors engine.TaskInput for the YAML seed file.
type seedTask struct {
	Number      string `yaml:"number"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Priority    string `yaml:"priority"`
	Responsible string `yaml:"responsible"`
}

type seedReception struct {
	OrderNumber     string `yaml:"orderNumber"`
	Designation     string `yaml:"designation"`
	Name            string `yaml:"name"`
	Quantity        string `yaml:"quantity"`
	RouteCardNumber string `yaml:"routeCardNumber"`
	Status          string `yaml:"status"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo tasks",
	Long: `Creates a small set of demo tasks. Seeding is idempotent: tasks whose
number already exists are skipped.`,
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

		var seed struct {
			Tasks      []seedTask      `yaml:"tasks"`
			Receptions []seedReception `yaml:"receptions"`
		}
		if err := yaml.Unmarshal(seedData, &seed); err != nil {
			return fmt.Errorf("parse seed data: %w", err)
		}

		created, skipped := 0, 0
		for _, t := range seed.Tasks {
			_, err := eng.Create(engine.TaskInput{
				Number:      t.Number,
				Name:        t.Name,
				Description: t.Description,
				Status:      t.Status,
				Priority:    t.Priority,
				Responsible: t.Responsible,
			})
			if errors.Is(err, store.ErrConflict) {
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("seed task %q: %w", t.Number, err)
			}
			created++
		}

		// Receptions carry no unique key, so they are only seeded into an
		// empty journal.
		existing, err := st.ListReceptions("", "")
		if err != nil {
			return err
		}
		receptions := 0
		if len(existing) == 0 {
			now := engine.SystemClock().Now()
			for _, r := range seed.Receptions {
				if _, err := st.CreateReception(models.Reception{
					Date:            now,
					OrderNumber:     r.OrderNumber,
					Designation:     r.Designation,
					Name:            r.Name,
					Quantity:        r.Quantity,
					RouteCardNumber: r.RouteCardNumber,
					Status:          r.Status,
					CreatedAt:       now,
				}); err != nil {
					return fmt.Errorf("seed reception %q: %w", r.OrderNumber, err)
				}
				receptions++
			}
		}

		fmt.Printf("Seeded %d task(s), skipped %d existing, %d reception(s).\n", created, skipped, receptions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
