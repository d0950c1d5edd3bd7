package audit

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/obentoo/portcheck/internal/common/output"
)

// FormatOptions configures report rendering
type FormatOptions struct {
	// IncludeLive also lists the entries that still change behavior
	IncludeLive bool
}

// FormatReport formats an audit report for display. Findings appear in
// one section per classification, grouped by source file and ordered by
// line, followed by a summary count line.
func FormatReport(report *Report, opts FormatOptions) string {
	var sb strings.Builder

	if report.Len() == 0 {
		sb.WriteString(output.Sprintf(output.Success, "No override entries found.\n"))
		return sb.String()
	}

	if report.Actionable() == 0 {
		sb.WriteString(output.Sprintf(output.Success, "All override entries are live.\n"))
	}

	sections := []struct {
		class Classification
		title string
	}{
		{BadLine, "Unparseable lines"},
		{Stale, "Stale entries"},
		{Redundant, "Redundant entries"},
		{Live, "Live entries"},
	}

	for _, sec := range sections {
		if sec.class == Live && !opts.IncludeLive {
			continue
		}
		findings := report.byClass(sec.class)
		if len(findings) == 0 {
			continue
		}
		sb.WriteString(formatSection(sec.class, sec.title, findings))
	}

	sb.WriteString(formatSummary(report))
	return sb.String()
}

// formatSection renders one classification section, with findings
// grouped under their source file
func formatSection(class Classification, title string, findings []Finding) string {
	var sb strings.Builder
	sb.WriteString(output.Sprintf(classColor(class), "\n%s (%d):\n", title, len(findings)))

	currentFile := ""
	for _, f := range findings {
		if f.File != currentFile {
			currentFile = f.File
			sb.WriteString(output.Sprintf(output.Header, "  %s\n", f.File))
		}
		sb.WriteString(fmt.Sprintf("    line %d: %s [%s] %s\n",
			f.Line, output.Sprint(classColor(class), f.Atom), f.Kind, f.Detail))
	}
	return sb.String()
}

// formatSummary renders the trailing count line
func formatSummary(r *Report) string {
	var parts []string
	if r.StaleCount > 0 {
		parts = append(parts, fmt.Sprintf("Stale: %s", output.Sprint(output.Stale, r.StaleCount)))
	}
	if r.RedundantCount > 0 {
		parts = append(parts, fmt.Sprintf("Redundant: %s", output.Sprint(output.Redundant, r.RedundantCount)))
	}
	if r.BadLineCount > 0 {
		parts = append(parts, fmt.Sprintf("Unparseable: %s", output.Sprint(output.Invalid, r.BadLineCount)))
	}
	if r.LiveCount > 0 {
		parts = append(parts, fmt.Sprintf("Live: %s", output.Sprint(output.Live, r.LiveCount)))
	}
	parts = append(parts, fmt.Sprintf("Total: %d", r.Len()))

	return "\n" + strings.Join(parts, " | ") + "\n"
}

// byClass returns the findings of one classification, preserving the
// file and line order established by sortFindings
func (r *Report) byClass(c Classification) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Class == c {
			out = append(out, f)
		}
	}
	return out
}

func classColor(c Classification) *color.Color {
	return output.ClassificationColor(c.String())
}
