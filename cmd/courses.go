package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dooilabs/context101/internal/course"
)

var coursesCmd = &cobra.Command{
	Use:   "courses [query]",
	Short: "List or search available courses",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := buildQuietLogger()
		if err != nil {
			return err
		}
		provider, err := buildProvider(cfg, log)
		if err != nil {
			return err
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		tag, _ := cmd.Flags().GetString("tag")
		limit, _ := cmd.Flags().GetInt("limit")

		courses, err := provider.ListCourses(cmd.Context(), course.ListFilter{
			Query: query,
			Tag:   tag,
			Limit: limit,
		})
		if err != nil {
			return fmt.Errorf("list courses: %w", err)
		}
		if len(courses) == 0 {
			fmt.Println("No courses found.")
			return nil
		}

		for _, c := range courses {
			line := fmt.Sprintf("%s\t%s", c.ID, c.Title)
			if len(c.Tags) > 0 {
				line += "\t[" + strings.Join(c.Tags, ", ") + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	coursesCmd.Flags().String("tag", "", "Filter courses by tag")
	coursesCmd.Flags().Int("limit", 20, "Maximum number of results")
}
