package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "embedforge",
		Short:         "Interactive Discord embed authoring bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the admin API",
		RunE: func(_ *cobra.Command, _ []string) error {
			runServe()
			return nil
		},
	}
	serve.Flags().StringVar(&configPath, "config", "", "path to the TOML config file")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
