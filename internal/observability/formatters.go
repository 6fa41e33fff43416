// Package observability provides logging, metrics and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/prospect-analyzer/internal/db"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress writes one analysis progress line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(stage, message string) {
	icon := "•"
	switch stage {
	case "completed":
		icon = "✅"
	case "error":
		icon = "❌"
	}
	fmt.Fprintf(p.out, "%s [%s] %s\n", icon, stage, message)
}

// PrintCompany outputs a summary of a company record.
func (p *Printer) PrintCompany(c *db.Company) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", c.CompanyName))
	sb.WriteString(fmt.Sprintf("Domain:   %s\n", c.Domain))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", c.Status))
	sb.WriteString(fmt.Sprintf("Contacts: %d", c.TotalContactsFound))
	if c.Industry != nil && *c.Industry != "" {
		sb.WriteString(fmt.Sprintf("\nIndustry: %s", *c.Industry))
	}

	p.printBox("COMPANY", sb.String())
}

// PrintContacts outputs the contacts found for a company.
func (p *Printer) PrintContacts(contacts []db.Contact) {
	if len(contacts) == 0 {
		p.printBox("CONTACTS", "No contacts found")
		return
	}

	withEmail := 0
	for _, c := range contacts {
		if c.Email != nil && *c.Email != "" {
			withEmail++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d contacts, %d with email\n\n", len(contacts), withEmail))

	count := min(len(contacts), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := contacts[i]
		sb.WriteString(fmt.Sprintf("• %s\n", deref(c.DisplayName, deref(c.FirstName, deref(c.LinkedInHandle, "(unnamed)")))))
		if c.JobTitle != nil && *c.JobTitle != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", *c.JobTitle))
		}
		if c.Email != nil && *c.Email != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", *c.Email))
		}
	}
	if len(contacts) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(contacts)-maxItemsToShow))
	}

	p.printBox("CONTACTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintConnection outputs the provider connection check result.
func (p *Printer) PrintConnection(connected bool, message string) {
	status := "❌ NOT CONNECTED"
	if connected {
		status = "✅ CONNECTED"
	}
	p.printBox("PROVIDER CONNECTION", status+"\n"+message)
}

// PrintCleanup outputs the result of a corrupted-record cleanup.
func (p *Printer) PrintCleanup(deleted int, errs []string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Deleted %d corrupted records", deleted))
	for _, e := range errs {
		sb.WriteString(fmt.Sprintf("\n⚠ %s", e))
	}
	p.printBox("CLEANUP", sb.String())
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
