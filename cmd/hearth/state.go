package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/hearth"
	"github.com/aretw0/hearth/internal/platform"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the introspection state of every component",
	Long:  `State assembles the application without serving and prints each component's state as JSON.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := platform.NewApp(context.Background(), cfg, slog.Default(),
			strings.TrimSpace(hearth.Version), platform.WithDevSafety(devSafety))
		if err != nil {
			fatal("Error assembling app", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(app.State()); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
