// Package cmd implements the command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/regradar/cmd/configs"
	"github.com/jonesrussell/regradar/cmd/httpd"
	"github.com/jonesrussell/regradar/cmd/trigger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "regradar",
		Short: "Regulatory and competitor radar",
		Long:  "Tracks regulatory policies and competitor activity by orchestrating crawls and batch analysis.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are in place before viper
	// reads them.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or /etc/regradar/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("regradar version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(httpd.Command(&cfgFile, &debug))
	rootCmd.AddCommand(trigger.Command(&cfgFile, &debug))
	rootCmd.AddCommand(configs.Command(&cfgFile, &debug))
}
