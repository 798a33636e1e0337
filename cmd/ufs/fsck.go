package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Check the image for consistency violations",
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys, err := openFs()
		if err != nil {
			return err
		}
		probs := fsys.Check()
		if len(probs) == 0 {
			fmt.Println("clean")
			return nil
		}
		for _, p := range probs {
			fmt.Println(p)
		}
		return fmt.Errorf("%d problems found", len(probs))
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)
}
