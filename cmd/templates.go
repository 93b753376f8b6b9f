/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/db"
	"github.com/bookify/apiserver/internal/server"
	"github.com/bookify/apiserver/internal/store"
	"github.com/bookify/apiserver/types"
	"github.com/spf13/cobra"
)

// templatesCmd groups email template maintenance.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage email templates",
}

var templatesPushCmd = &cobra.Command{
	Use:   "push [name...]",
	Short: "Copy templates from the database to object storage",
	Long: `Copies the named templates (default UserRegistration) from the
email_templates table to the bucket selected by TEMPLATE_SOURCE (minio or gcs).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		ctx := cmd.Context()

		names := args
		if len(names) == 0 {
			names = []string{types.TemplateUserRegistration}
		}

		templates, closeStore, err := server.OpenTemplateStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		repo := store.NewEmailTemplateRepository(dbConn)
		for _, name := range names {
			tmpl, err := repo.GetByName(ctx, name)
			if err != nil {
				return fmt.Errorf("load template %s: %w", name, err)
			}
			if err := templates.Upload(ctx, tmpl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %s to %s\n", name, templates.Key(name))
		}
		return nil
	},
}

var templatesRemoveCmd = &cobra.Command{
	Use:   "remove name...",
	Short: "Delete templates from object storage",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		ctx := cmd.Context()

		templates, closeStore, err := server.OpenTemplateStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		for _, name := range args {
			if err := templates.Remove(ctx, name); err != nil {
				return fmt.Errorf("remove template %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", templates.Key(name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesPushCmd)
	templatesCmd.AddCommand(templatesRemoveCmd)
}
