package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tablero/internal/detect"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// MaxOfficialRows bounds the officials table in RenderSummary.
const MaxOfficialRows = 10

// RenderSyncSummary describes a finished sync, one block per source.
func RenderSyncSummary(summary *ingest.RunSummary) string {
	var b strings.Builder

	for i := range summary.Sources {
		src := &summary.Sources[i]
		if src.Err != nil {
			b.WriteString(FormatError(fmt.Sprintf("%s: %v", src.Source, src.Err)) + "\n")
			continue
		}

		line := fmt.Sprintf("%s: %d sheets processed, %d skipped, %d failed, %d rows dropped, %d records written",
			src.Source,
			src.Count(ingest.SheetProcessed),
			src.Count(ingest.SheetSkipped),
			src.Count(ingest.SheetFailed),
			src.Dropped(),
			src.Written)
		if src.Count(ingest.SheetFailed) > 0 {
			b.WriteString(FormatWarning(line) + "\n")
		} else {
			b.WriteString(FormatSuccess(line) + "\n")
		}

		for _, o := range src.Sheets {
			switch o.Status {
			case ingest.SheetSkipped:
				b.WriteString(SubtleStyle.Render(fmt.Sprintf("    skipped %q: %s", o.Sheet, o.Reason)) + "\n")
			case ingest.SheetFailed:
				b.WriteString(ErrorStyle.Render(fmt.Sprintf("    failed %q: %v", o.Sheet, o.Err)) + "\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  • Records written: %d\n", summary.Written()))
	b.WriteString(fmt.Sprintf("  • Sources failed: %d of %d\n", summary.Failures(), len(summary.Sources)))
	if !summary.FinishedAt.IsZero() {
		b.WriteString(fmt.Sprintf("  • Time taken: %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)))
	}

	return RenderBox("Sync Complete", strings.TrimRight(b.String(), "\n"))
}

// RenderSummary renders dashboard totals as tables.
func RenderSummary(s *service.Summary) string {
	sections := []string{
		FormatTitle(fmt.Sprintf("%d records", s.RecordCount)),
		renderTotals("Currency", s.ByCurrency),
		renderTotals("Scope", s.ByScope),
		renderTotals("Month", s.ByMonth),
	}

	officials := s.ByOfficial
	if len(officials) > MaxOfficialRows {
		officials = officials[:MaxOfficialRows]
	}
	sections = append(sections, renderTotals("Official", officials))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderTotals(label string, totals []service.Total) string {
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.Key, string(t.Currency), FormatAmount(t.Amount), strconv.Itoa(t.Count)})
	}
	return RenderTable([]string{label, "Currency", "Amount", "Records"}, rows) + "\n"
}

// RenderRecords lists records one per row.
func RenderRecords(records []model.Record) string {
	rows := make([][]string, 0, len(records))
	for i := range records {
		r := &records[i]
		date := r.Date.Format("2006-01-02")
		if r.DateEstimated {
			date += "*"
		}
		rows = append(rows, []string{
			date,
			truncate(r.Title, 48),
			truncate(r.OfficialName, 24),
			truncate(r.Place, 20),
			FormatAmount(r.CostAmount) + " " + string(r.CostCurrency),
			string(r.Scope),
		})
	}
	return RenderTable([]string{"Date", "Title", "Official", "Place", "Cost", "Scope"}, rows)
}

// RenderOutcome describes how one sheet was read: where the header was
// found, how columns were mapped and why rows were dropped.
func RenderOutcome(o *ingest.SheetOutcome) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Status: %s", o.Status))
	if o.Reason != "" {
		b.WriteString(fmt.Sprintf(" (%s)", o.Reason))
	}
	b.WriteString("\n")
	if o.HeaderRow >= 0 {
		b.WriteString(fmt.Sprintf("Header row: %d\n", o.HeaderRow+1))
	}
	b.WriteString(fmt.Sprintf("Rows read: %d, dropped: %d\n", o.RowsRead, o.RowsDropped))

	if len(o.Columns) > 0 {
		b.WriteString("\n")
		rows := make([][]string, 0, len(o.Columns))
		for _, f := range detect.Fields {
			col, ok := o.Columns[f]
			if !ok {
				rows = append(rows, []string{string(f), SubtleStyle.Render("unmapped"), ""})
				continue
			}
			rows = append(rows, []string{string(f), col.Name, columnLetter(col.Index)})
		}
		b.WriteString(RenderTable([]string{"Field", "Header", "Column"}, rows))
		b.WriteString("\n")
	}

	if len(o.Drops) > 0 {
		reasons := make([]string, 0, len(o.Drops))
		for reason := range o.Drops {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		b.WriteString("\nDropped rows:\n")
		for _, reason := range reasons {
			b.WriteString(fmt.Sprintf("  • %s: %d\n", reason, o.Drops[reason]))
		}
	}

	return RenderBox(SheetIcon+" "+o.Sheet, strings.TrimRight(b.String(), "\n"))
}

// RenderTable lays out rows under a bold header, padding every column to
// its widest cell.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				widths[i] = max(widths[i], lipgloss.Width(row[i]))
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			out[i] = TableCellStyle.Width(widths[i] + TableCellStyle.GetPaddingRight()).Render(style.Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{TableHeaderStyle.Render(renderRow(headers, BoldStyle))}
	for _, row := range rows {
		lines = append(lines, renderRow(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// FormatAmount prints an amount with two decimals and thousands
// separators, as in "1,234,567.50".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// columnLetter converts a zero-based index to a spreadsheet column name.
func columnLetter(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
