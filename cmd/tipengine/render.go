package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/warp/tip-engine/api"
	"github.com/warp/tip-engine/store/sqlite"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderDistribution(w io.Writer, d api.DistributionResponse, dryRun bool) {
	title := "Distribution " + d.ID
	if dryRun {
		title += " (dry run, not stored)"
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("period %s to %s, %d tips", d.PeriodStart, d.PeriodEnd, d.Tips)))

	t := newTable("Employee", "Title", "Eligible", "Shares", "Total")
	for _, line := range d.Payroll {
		eligible := "yes"
		if !line.TipEligible {
			eligible = "no"
		}
		t.Row(line.FullName, line.JobTitle, eligible, fmt.Sprint(line.Shares), line.Total)
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintf(w, "processed %s %s = distributed %s + overpaid %s\n",
		d.Processed, d.Currency, d.Distributed, d.Overpaid)

	for _, warn := range d.Diagnostics.Warnings {
		line := fmt.Sprintf("warning: %s x%d", warn.Kind, warn.Count)
		if len(warn.TransactionIDs) > 0 {
			line += " (" + strings.Join(warn.TransactionIDs, ", ") + ")"
		}
		fmt.Fprintln(w, warningStyle.Render(line))
	}
}

func renderRuns(w io.Writer, runs []sqlite.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no runs stored"))
		return
	}
	t := newTable("Run", "Period start", "Tips", "Processed", "Distributed", "Overpaid", "Created")
	for _, r := range runs {
		t.Row(
			string(r.ID),
			r.Period.Start.Format("2006-01-02"),
			fmt.Sprint(r.Tips),
			r.Processed.Value.StringFixed(2),
			r.Distributed.Value.StringFixed(2),
			r.Overpaid.Value.StringFixed(2),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderAllocations(w io.Writer, allocs []api.AllocationDTO) {
	t := newTable("Transaction", "Time", "Tip", "Reason", "Shares")
	for _, a := range allocs {
		shares := make([]string, 0, len(a.Shares))
		for _, s := range a.Shares {
			shares = append(shares, fmt.Sprintf("%s %s", s.FullName, s.Amount))
		}
		t.Row(a.TransactionID, a.Timestamp, a.Tip, a.Reason, strings.Join(shares, "; "))
	}
	fmt.Fprintln(w, t.Render())
}

func renderScenarios(w io.Writer, scenarios []api.ScenarioDTO) {
	fmt.Fprintln(w, titleStyle.Render("Scenarios"))
	for _, s := range scenarios {
		fmt.Fprintf(w, "  %-16s %s\n", s.ID, dimStyle.Render(s.Description))
	}
}
