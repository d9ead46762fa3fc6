package main

import (
	"github.com/spf13/cobra"
)

// configFile is the optional YAML config path shared by all subcommands.
var configFile string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webshop",
		Short: "Server-rendered shop with session authentication",
		Long: `webshop serves the shop, cart, authentication and admin pages.
Configuration comes from the environment, optionally layered over a YAML file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}
