package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/hearth/internal/handlers"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/typed"
)

var (
	seedFile  string
	seedForce bool
)

// defaultMenu is written when no menu file is given.
var defaultMenu = handlers.Menu{
	"margherita": {Name: "Margherita", Price: 8.5},
	"pepperoni":  {Name: "Pepperoni", Price: 9.5},
	"hawaiian":   {Name: "Hawaiian", Price: 10},
	"veggie":     {Name: "Veggie", Price: 9},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the menu record",
	Long: `Seed stores the menu in the data directory, creating the directory if needed.
The menu is read from a YAML file mapping item ids to {name, price}, or a built-in one is used.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		menu := defaultMenu
		if seedFile != "" {
			data, err := os.ReadFile(seedFile)
			if err != nil {
				fatal("Failed to read menu file", err)
			}
			menu = handlers.Menu{}
			if err := yaml.Unmarshal(data, &menu); err != nil {
				fatal("Failed to parse menu file", err)
			}
		}

		ctx := context.Background()
		// The data directory may not exist yet.
		store, err := openStoreCreating(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}

		menus := typed.NewCollection[handlers.Menu](store, "menu")
		err = menus.Create(ctx, handlers.MenuKey, menu)
		if errors.Is(err, core.ErrAlreadyExists) && seedForce {
			err = menus.Update(ctx, handlers.MenuKey, menu)
		}
		if errors.Is(err, core.ErrAlreadyExists) {
			fatal("Menu already seeded (use --force to overwrite)", err)
		}
		if err != nil {
			fatal("Failed to write menu", err)
		}

		fmt.Printf("Menu seeded with %d items\n", len(menu))
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML menu file")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Overwrite an existing menu")
}
