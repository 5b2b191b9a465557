package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at release build time via -ldflags; left as "dev"
// for local builds, following the teacher's cmd/root.go pattern.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aegish",
	Short: "LLM-mediated interactive shell with security validation",
	Long: `aegish intercepts each command line typed at its prompt, canonicalizes it,
runs a static pre-filter, consults one or more LLM providers for a safety
classification, and either runs the command sandboxed, asks the operator to
confirm, or refuses outright.`,
	RunE: runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the aegish config file (defaults to /etc/aegish/config)")
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the aegish version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("aegish " + version)
			return nil
		},
	}
}

func Execute() error {
	return rootCmd.Execute()
}
