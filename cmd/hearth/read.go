package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [collection] [key]",
	Short: "Read a record",
	Long:  `Read a record and print it as indented JSON.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fatal("Error opening store", err)
		}

		rec, err := store.Read(ctx, args[0], args[1])
		if err != nil {
			fatal("Error reading record", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rec); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
