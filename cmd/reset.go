package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <courseId>",
	Short: "Clear stored progress for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("yes")
		if !confirm {
			fmt.Printf("Pass --yes to reset progress for course %q.\n", args[0])
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := buildStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		existed, err := store.Delete(args[0])
		if err != nil {
			return err
		}
		if !existed {
			fmt.Println("No course progress found.")
			return nil
		}
		fmt.Printf("Progress for course %q cleared.\n", args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
