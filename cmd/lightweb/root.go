package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd builds the lightweb command tree: serve and version.
func rootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "lightweb",
		Short: "lightweb is a self-contained HTTP/1.1 and WebSocket server",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json, toml)")

	root.AddCommand(newServeCmd(v, &configFile))
	root.AddCommand(newVersionCmd())
	return root
}
