package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [devicesDir]",
	Short: "Lists the IDs of all connected sensors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := newBusFromArgs(args, false).ListSensors()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			log.Warn().Message("No sensors found. Is the w1-gpio kernel module loaded?")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
