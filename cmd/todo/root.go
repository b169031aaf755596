package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "todo",
	Short: "Terminal client for the todo list API",
	Long: `todo talks to a todo list backend: sign in, list, search and edit todos,
or browse them interactively with infinite scrolling.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: todo.yaml or $TODO_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write logs to stdout as well as the log file")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)
}
