package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/sepcheck/internal/model"
)

// Renderer writes reports as JSON, Markdown or a console summary.
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer. Verbose console output includes findings
// that do not qualify and data-quality issues.
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// Marker returns the console marker for a finding status.
func Marker(s model.Status) string {
	switch s {
	case model.StatusQualifies, model.StatusMayQualify:
		return "✓"
	case model.StatusNotQualified:
		return "✗"
	default:
		return "⚠"
	}
}

// RenderJSON writes the report as indented JSON to path.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes the report as Markdown to path.
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	var b strings.Builder
	r.writeMarkdown(&b, report)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func (r *Renderer) writeMarkdown(b *strings.Builder, report *model.Report) {
	b.WriteString("# SEP eligibility report\n\n")
	if rec := report.Record; rec != nil && rec.FullName != "" {
		fmt.Fprintf(b, "**Beneficiary:** %s  \n", rec.FullName)
	}
	if report.Plan != "" {
		fmt.Fprintf(b, "**Plan:** %s  \n", report.Plan)
	}
	if report.Source != "" {
		fmt.Fprintf(b, "**Source:** `%s`  \n", report.Source)
	}
	fmt.Fprintf(b, "**Report:** %s, generated %s\n\n", report.ID, report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	if report.ExtractionError != "" {
		fmt.Fprintf(b, "## Extraction failed\n\n%s\n", report.ExtractionError)
		return
	}
	res := report.Result
	if res == nil {
		return
	}

	if res.Blocked {
		fmt.Fprintf(b, "## Not eligible\n\n%s\n", res.Block.Reason)
		return
	}

	fmt.Fprintf(b, "## Findings (as of %s)\n\n", res.AsOf.Format(model.DatasetDateLayout))
	b.WriteString("| | Category | Status | Detail |\n|---|---|---|---|\n")
	for _, f := range res.Findings {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", Marker(f.Status), f.Category.Label(), f.Status, escapeCell(f.Message))
	}

	if res.NeedsFallbackGuidance {
		b.WriteString("\n## Follow-up questions\n\n")
		if res.FallbackReason == model.FallbackDSTOnly {
			b.WriteString("Only a disaster SEP was found. Look for a stronger option:\n\n")
		} else {
			b.WriteString("No SEP found. Ask the customer:\n\n")
		}
		for _, g := range res.Guidance {
			fmt.Fprintf(b, "- %s\n", g.Prompt)
		}
	}

	if len(report.Issues) > 0 {
		b.WriteString("\n## Data quality\n\n")
		for _, i := range report.Issues {
			fmt.Fprintf(b, "- **%s** (%s): %s\n", i.Field, i.Severity, i.Message)
		}
	}
}

// WriteConsole prints the short agent-facing summary.
func (r *Renderer) WriteConsole(w io.Writer, report *model.Report) {
	if report.Source != "" {
		fmt.Fprintf(w, "== %s\n", report.Source)
	}
	if report.ExtractionError != "" {
		fmt.Fprintf(w, "✗ Extraction failed: %s\n", report.ExtractionError)
		return
	}
	if report.Plan != "" {
		fmt.Fprintf(w, "Plan: %s\n", report.Plan)
	}
	res := report.Result
	if res == nil {
		return
	}
	if res.Blocked {
		fmt.Fprintf(w, "✗ Not eligible: %s\n", res.Block.Reason)
		return
	}

	for _, f := range res.Findings {
		if !r.verbose && f.Status == model.StatusNotQualified {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", Marker(f.Status), f.Message)
	}

	if res.NeedsFallbackGuidance {
		if res.FallbackReason == model.FallbackDSTOnly {
			fmt.Fprintln(w, "⚠ Only a DST SEP was found. Follow up:")
		} else {
			fmt.Fprintln(w, "✗ No SEP found. Follow up:")
		}
		for _, g := range res.Guidance {
			fmt.Fprintf(w, "  - %s\n", g.Prompt)
		}
	}

	if r.verbose {
		for _, i := range report.Issues {
			fmt.Fprintf(w, "  [%s] %s: %s\n", i.Severity, i.Field, i.Message)
		}
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
