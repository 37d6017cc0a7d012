package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	apiURL     string
}

func main() {
	var flags globalFlags
	rootCmd := &cobra.Command{
		Use:           "tasksync",
		Short:         "Terminal task manager synced with the task backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "TOML config file (default tasksync.toml when present)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "env file loaded before TASKSYNC_* variables")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flags.apiURL, "api", "", "backend base URL")

	rootCmd.AddCommand(tuiCmd(&flags))
	rootCmd.AddCommand(loginCmd(&flags))
	rootCmd.AddCommand(registerCmd(&flags))
	rootCmd.AddCommand(logoutCmd(&flags))
	rootCmd.AddCommand(whoamiCmd(&flags))
	rootCmd.AddCommand(tasksCmd(&flags))
	rootCmd.AddCommand(chatCmd(&flags))
	rootCmd.AddCommand(relayCmd(&flags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tasksync: %v\n", err)
		os.Exit(1)
	}
}

func tuiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task view (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *flags)
		},
	}
}
