package analysis

import (
	"fmt"
	"math"
	"strings"
)

// maxListedCustomers caps the segment listing in Markdown output.
const maxListedCustomers = 50

// Markdown renders a compact, sectioned report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[RFM SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Report: %s\n", r.ID))
	b.WriteString(fmt.Sprintf("As of: %s\n", r.AsOf.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Rows: %d\n", len(r.Rows)))
	b.WriteString(fmt.Sprintf("Customers: %d\n", r.customerTotal()))

	if len(r.Preview) > 0 {
		b.WriteString("\n[DATA PREVIEW]\n")
		b.WriteString("| CustomerID | PurchaseDate | OrderID | TransactionAmount |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, t := range r.Preview {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f |\n",
				safeVal(t.CustomerID), t.PurchaseDate.Format("2006-01-02"), safeVal(t.OrderID), t.TransactionAmount))
		}
	}

	if len(r.ValueSegmentCounts) > 0 {
		b.WriteString("\n[VALUE SEGMENTS]\n")
		for _, c := range r.ValueSegmentCounts {
			b.WriteString(fmt.Sprintf("- %s: %d\n", c.Segment, c.Count))
		}
	}

	if len(r.SegmentBreakdown) > 0 {
		b.WriteString("\n[SEGMENTS BY VALUE]\n")
		last := ""
		for _, p := range r.SegmentBreakdown {
			if p.ValueSegment != last {
				b.WriteString(fmt.Sprintf("- %s\n", p.ValueSegment))
				last = p.ValueSegment
			}
			b.WriteString(fmt.Sprintf("  • %s: %d\n", p.CustomerSegment, p.Count))
		}
	}

	if len(r.SegmentScores) > 0 {
		b.WriteString("\n[CUSTOMER SEGMENTS]\n")
		b.WriteString("| Segment | Rows | Recency | Frequency | Monetary |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, s := range r.SegmentScores {
			b.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f |\n", s.Segment, s.Count, s.Recency, s.Frequency, s.Monetary))
		}
	}

	b.WriteString("\n[CHAMPIONS]\n")
	if len(r.Champions) == 0 {
		b.WriteString("No rows in the Champions segment.\n")
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", len(r.Champions)))
		for _, s := range r.ChampionStats {
			b.WriteString(fmt.Sprintf("- %s: min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g\n", s.Column, s.Min, s.Q1, s.Median, s.Q3, s.Max))
		}
		if m := r.ChampionCorr; m != nil {
			b.WriteString("Correlations:\n")
			for i := 0; i < len(m.Columns); i++ {
				for j := i + 1; j < len(m.Columns); j++ {
					b.WriteString(fmt.Sprintf("- %s ~ %s: %s\n", m.Columns[i], m.Columns[j], formatR(m.Values[i][j])))
				}
			}
		}
	}

	if len(r.Rows) > 0 {
		b.WriteString("\n[SEGMENTED CUSTOMERS]\n")
		b.WriteString("| CustomerID | RFM Score | Value Segment | Customer Segment |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for i, row := range r.Rows {
			if i >= maxListedCustomers {
				b.WriteString(fmt.Sprintf("… %d more rows\n", len(r.Rows)-maxListedCustomers))
				break
			}
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", safeVal(row.CustomerID), row.RFMScore, orDash(row.ValueSegment), row.CustomerSegment))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r *Report) customerTotal() int {
	seen := map[string]struct{}{}
	for _, row := range r.Rows {
		seen[row.CustomerID] = struct{}{}
	}
	return len(seen)
}

func formatR(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("r=%.3f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
