// Package main provides the agentconsole binary entry point.
// Agentconsole is a command-line console for the agent orchestration
// backends: agent chat, alert monitoring and investigation runs.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "agentconsole"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	app := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Console client for the agent orchestration backends",
		Long: `Agentconsole talks to the agent orchestration backend and its hook
service from the terminal.

It provides:
- Agent listing and streamed chat sends
- Alert listing, summaries and live watching
- Investigation runs over an ordered agent plan`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	cmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(
		agentsCmd(app),
		sessionsCmd(app),
		chatCmd(app),
		alertsCmd(app),
		hooksCmd(app),
		investigateCmd(app),
	)

	return cmd
}
