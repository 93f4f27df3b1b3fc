package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/rentdesk"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of rentdesk",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rentdesk version %s\n", strings.TrimSpace(rentdesk.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
