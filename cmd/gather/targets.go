package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add URL...",
	Short: "Add target URLs to the working set",
	Long: `Add one or more URLs to the working set. URLs already present are
skipped. Nothing is added if any URL is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			added, err := a.svc.Add(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return renderEntries(cmd.OutOrStdout(), format(outputFormat), added)
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the working set with 1-based positions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return renderEntries(cmd.OutOrStdout(), format(outputFormat), a.svc.List())
		})
	},
}

var removeFailed bool

var removeCmd = &cobra.Command{
	Use:     "remove POSITION...",
	Aliases: []string{"rm"},
	Short:   "Remove targets by their position in the list",
	Long: `Remove targets by the 1-based positions shown by "gather list".
All positions refer to the list before removal. With --failed, every
target in the failure ledger is removed instead.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if removeFailed {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		positions := make([]int, 0, len(args))
		for _, arg := range args {
			pos, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid position %q", arg)
			}
			positions = append(positions, pos)
		}

		return withApp(cmd.Context(), func(a *app) error {
			if removeFailed {
				n, err := a.svc.RemoveFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "removed %d failed targets\n", n)
			} else if err := a.svc.Remove(cmd.Context(), positions...); err != nil {
				return err
			}
			return renderEntries(cmd.OutOrStdout(), format(outputFormat), a.svc.List())
		})
	},
}

func init() {
	removeCmd.Flags().BoolVar(&removeFailed, "failed", false, "remove every target in the failure ledger")
}
