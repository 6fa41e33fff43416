package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/spf13/cobra"
)

var providerStatusCmd = &cobra.Command{
	Use:   "provider-status",
	Short: "Check the contact provider credentials",
	RunE:  runProviderStatus,
}

func init() {
	rootCmd.AddCommand(providerStatusCmd)
}

func runProviderStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	status, err := a.relay.TestConnection(cmd.Context(), uuid.Nil)
	if err != nil {
		printer.PrintConnection(false, err.Error())
		return fmt.Errorf("provider connection failed")
	}
	printer.PrintConnection(status.Connected, status.Message)
	if !status.Connected {
		return fmt.Errorf("provider connection failed")
	}
	return nil
}
