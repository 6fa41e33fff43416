package main

import (
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/spf13/cobra"
)

var cleanupUser string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete a user's corrupted company records",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupUser, "user", "u", "", "Email of the user whose records are cleaned (required)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	userID, err := a.userByEmail(ctx, cleanupUser)
	if err != nil {
		return err
	}
	res, err := a.enrichment.CleanupCorruptedRecords(ctx, userID)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintCleanup(res.DeletedCount, res.Errors)
	return nil
}
