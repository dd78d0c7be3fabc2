package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwygoda/gather/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Secret != "" {
			shown.Secret = "********"
		}
		f := format(outputFormat)
		if f == formatTable {
			f = formatYAML
		}
		return render(cmd.OutOrStdout(), f, shown, nil)
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --overwrite to replace it)", path)
		}
		if err := config.Save(path, *cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "overwrite", false, "replace an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
