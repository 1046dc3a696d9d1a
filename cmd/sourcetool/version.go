package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trysourcetool/sourcetool"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sourcetool",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sourcetool version %s\n", strings.TrimSpace(sourcetool.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
