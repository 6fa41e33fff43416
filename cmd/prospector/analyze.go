package main

import (
	"fmt"

	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/observability"
	"github.com/spf13/cobra"
)

var (
	analyzeUser    string
	analyzeWebsite string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <domain>",
	Short: "Find the contacts at a company domain",
	Long: `Runs one company analysis for a registered user: looks up LinkedIn contacts
for the domain, then their emails, and stores the results.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeUser, "user", "u", "", "Email of the user the analysis belongs to (required)")
	analyzeCmd.Flags().StringVar(&analyzeWebsite, "website", "", "Company website URL")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	userID, err := a.userByEmail(ctx, analyzeUser)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	res, err := a.enrichment.Analyze(ctx, enrichment.AnalyzeRequest{
		UserID:     userID,
		Domain:     args[0],
		WebsiteURL: analyzeWebsite,
	}, func(ev enrichment.ProgressEvent) {
		printer.PrintProgress(string(ev.Step), ev.Message)
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printer.PrintCompany(res.Company)
	printer.PrintContacts(res.Contacts)
	return nil
}
