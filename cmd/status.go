package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [courseId]",
	Short: "Show stored course progress",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := buildStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if len(args) == 1 {
			p, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Println("No progress for course", args[0])
				return nil
			}
			fmt.Printf("Course: %s\n", p.CourseID)
			fmt.Printf("Current lesson: %s\n", p.CurrentLessonID)
			fmt.Printf("Current step: %s\n", p.CurrentStepID)
			fmt.Printf("Completed steps: %d\n", len(p.CompletedSteps))
			fmt.Printf("Completed lessons: %d\n", len(p.CompletedLessons))
			fmt.Printf("Updated at: %s\n", p.UpdatedAt.Format(time.RFC3339))
			return nil
		}

		records, err := store.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No course progress found.")
			return nil
		}
		for _, p := range records {
			fmt.Printf("%s\tstep %s\t%d steps done\t%s\n",
				p.CourseID, p.CurrentStepID, len(p.CompletedSteps),
				p.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	},
}
