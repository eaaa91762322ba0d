package main

import (
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "receiptpanel %s\n", versioninfo.Short())
		if !versioninfo.LastCommit.IsZero() {
			fmt.Fprintf(cmd.OutOrStdout(), "commit %s (%s)\n", versioninfo.Revision, versioninfo.LastCommit.Format("2006-01-02"))
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
