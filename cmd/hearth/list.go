package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	listJSON  bool
	listMatch string
)

var listCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List the keys of a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fatal("Error opening store", err)
		}

		var keys []string
		if listMatch != "" {
			keys, err = store.ListMatch(ctx, args[0], listMatch)
		} else {
			keys, err = store.List(ctx, args[0])
		}
		if err != nil {
			fatal("Error listing records", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(keys); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, k := range keys {
			fmt.Println(k)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Only keys matching this glob (e.g. \"555*\")")
}
