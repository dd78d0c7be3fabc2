package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwygoda/gather/internal/domain"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Fetch metadata for targets that have none",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, domain.TaskFetchInfo)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download every target not downloaded yet",
	Long: `Download every target not downloaded yet. Targets without metadata
have it fetched first, since the title decides the output folder.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, domain.TaskDownload)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Retry whatever task each target still has outstanding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, domain.TaskNone)
	},
}

func init() {
	downloadCmd.Flags().String("output-dir", "", "base download directory")
	downloadCmd.Flags().Bool("force", false, "overwrite existing files")
}

// dispatch runs task and prints this round's failures. An interrupted round
// still prints what failed before the interruption.
func dispatch(cmd *cobra.Command, task domain.Task) error {
	return withApp(cmd.Context(), func(a *app) error {
		failures, err := a.run(cmd.Context(), task)
		if err != nil && !domain.IsInterrupted(err) {
			return err
		}
		if rerr := renderFailures(cmd.OutOrStdout(), format(outputFormat), failures); rerr != nil {
			return rerr
		}
		if err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
		return nil
	})
}

var failuresClear bool

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show the failure ledger",
	Long: `Show targets whose last run exhausted their attempts, with the
diagnostic the downloader printed. --clear empties the ledger without
touching the working set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if failuresClear {
				return a.svc.ClearFailures(cmd.Context())
			}
			return renderFailures(cmd.OutOrStdout(), format(outputFormat), a.svc.Failures())
		})
	},
}

func init() {
	failuresCmd.Flags().BoolVar(&failuresClear, "clear", false, "empty the failure ledger")
}
