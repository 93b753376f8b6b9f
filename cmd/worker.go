/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/notify"
	"github.com/bookify/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// workerCmd drains the email queue and delivers over SMTP.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver queued verification emails",
	Long: `Consumes the email queue (NOTIFY_BACKEND=rabbitmq or pubsub) and
delivers each message over SMTP.

	bookify worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg).With("component", "email-worker")

		queue, err := server.OpenQueue(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open queue: %w", err)
		}
		defer queue.Close()

		sender, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return fmt.Errorf("configure smtp: %w", err)
		}

		return notify.NewWorker(queue, cfg.Notify.Channel, sender, logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
