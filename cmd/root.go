/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookify",
	Short: "Bookify account API",
	Long: `Bookify account API: registration, email verification and login.

	bookify server
	bookify migrate up
	bookify worker
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it with a
// context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) logging.Logger {
	return logging.New(os.Stderr, cfg.LogFormat)
}
