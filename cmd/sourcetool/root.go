package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trysourcetool/sourcetool/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sourcetool",
	Short: "Sourcetool runs internal tools written as page scripts",
	Long: `Sourcetool connects page scripts (the Host) to the people using them
(Clients) through a relay. Run "serve" for the relay, "host" for the scripts
and "attach" to use a page from the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (default $SOURCETOOL_CONFIG)")
}

// loadConfig reads the file named by --config or SOURCETOOL_CONFIG.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	return config.Load(path)
}
