package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [collection] [key]",
	Short: "Delete a record",
	Long:  `Delete permanently removes a record file from the data directory.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fatal("Error opening store", err)
		}

		if err := store.Delete(ctx, args[0], args[1]); err != nil {
			fatal("Error deleting record", err)
		}

		fmt.Printf("Record deleted: %s/%s\n", args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
