package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cwygoda/gather/internal/config"
)

var (
	cfgFile      string
	outputFormat string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gather",
	Short: "Fetch metadata and media for a list of URLs with an external downloader",
	Long: `Gather keeps a list of target URLs and runs an external downloader
(yt-dlp or compatible) against each of them, several at a time.

Failed runs are retried; targets that keep failing end up in the failure
ledger, where they can be inspected and pruned.

Configuration is read from ~/.config/gather/config.toml, GATHER_*
environment variables and flags, in increasing precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutputFormat(outputFormat); err != nil {
			return err
		}
		file := cfgFile
		if cmd == configInitCmd {
			// init may be creating the file it is pointed at.
			if _, err := os.Stat(file); err != nil {
				file = ""
			}
		}
		loaded, err := config.Load(file, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultConfigPath()+")")
	flags.StringVarP(&outputFormat, "output", "o", string(formatTable), "output format: table, json or yaml")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("executable", "", "downloader executable, or a directory containing it")
	flags.Int("concurrency", 1, "maximum number of downloader processes at once")
	flags.Int("max-attempts", 3, "attempts per job before it is reported as failed")
	flags.Duration("retry-delay", 0, "pause between attempts of the same job")
	flags.String("charset", "", "charset of the downloader's output (default: UTF-8)")
	flags.String("db", "", "SQLite database path (default: "+config.DefaultDBPath()+")")

	rootCmd.AddCommand(
		addCmd,
		listCmd,
		removeCmd,
		infoCmd,
		downloadCmd,
		runCmd,
		failuresCmd,
		serveCmd,
		configCmd,
	)
}
