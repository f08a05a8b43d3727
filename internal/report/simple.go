package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nao1215/portvapt/internal/model"
)

const ruleWidth = 80

// SimpleWriter outputs a human-readable report for the terminal, with
// risk levels colored when enabled.
type SimpleWriter struct {
	baseWriter

	bold     *color.Color
	critical *color.Color
	high     *color.Color
	medium   *color.Color
	low      *color.Color
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// Colors are off unless WithColor(true) is given.
func NewSimpleWriter(output io.Writer, opts ...Option) *SimpleWriter {
	o := newOptions(opts)
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		bold:       color.New(color.Bold),
		critical:   color.New(color.FgHiRed),
		high:       color.New(color.FgRed),
		medium:     color.New(color.FgYellow),
		low:        color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{w.bold, w.critical, w.high, w.medium, w.low} {
		if o.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return w
}

// Write outputs the report: a summary of per-port risk levels, the
// findings of every port that has any, and the general recommendations.
func (w *SimpleWriter) Write(results []model.VaptResult) (int, error) {
	var sb strings.Builder
	summary := model.Summarize(results)

	w.writeHeader(&sb)
	w.writeSummary(&sb, summary)
	w.writeResults(&sb, results)
	w.writeRecommendations(&sb, summary)

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.bold.Sprint("VULNERABILITY ASSESSMENT AND PENETRATION TESTING REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *model.Summary) {
	fmt.Fprintf(sb, "\n %s SUMMARY:\n", w.bold.Sprint("SCAN"))
	fmt.Fprintf(sb, "   Total ports scanned: %d\n", s.Total)
	fmt.Fprintf(sb, "   Critical vulnerabilities: %s\n", w.critical.Sprint(s.CriticalCount))
	fmt.Fprintf(sb, "   High vulnerabilities: %s\n", w.high.Sprint(s.HighCount))
	fmt.Fprintf(sb, "   Medium vulnerabilities: %s\n", w.medium.Sprint(s.MediumCount))
	fmt.Fprintf(sb, "   Low vulnerabilities: %s\n", w.low.Sprint(s.LowCount))
}

// writeResults lists the findings of each port; ports without findings
// are left out.
func (w *SimpleWriter) writeResults(sb *strings.Builder, results []model.VaptResult) {
	for _, r := range results {
		if len(r.Vulnerabilities) == 0 {
			continue
		}

		fmt.Fprintf(sb, "\n %s (Port %d) - Risk Level: %s\n",
			w.bold.Sprint(r.Service), r.Port, w.level(r.RiskLevel))

		for _, v := range r.Vulnerabilities {
			fmt.Fprintf(sb, "   %s: %s\n", w.bold.Sprint(v.Name), v.Description)
			fmt.Fprintf(sb, "     Severity: %s\n", w.level(v.Severity))
			if v.CVE != nil {
				fmt.Fprintf(sb, "     CVE: %s\n", *v.CVE)
			}
			fmt.Fprintf(sb, "     Remediation: %s\n", v.Remediation)
		}

		if len(r.Recommendations) > 0 {
			sb.WriteString("     Recommendations:\n")
			for _, rec := range r.Recommendations {
				fmt.Fprintf(sb, "     • %s\n", rec)
			}
		}
	}
}

func (w *SimpleWriter) writeRecommendations(sb *strings.Builder, s *model.Summary) {
	if len(s.GeneralRecommendations) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n %s RECOMMENDATIONS:\n", w.bold.Sprint("GENERAL"))
	for _, rec := range s.GeneralRecommendations {
		fmt.Fprintf(sb, "   • %s\n", rec)
	}
}

// level renders a risk level in its color.
func (w *SimpleWriter) level(r model.RiskLevel) string {
	switch r {
	case model.RiskCritical:
		return w.critical.Sprint(r.String())
	case model.RiskHigh:
		return w.high.Sprint(r.String())
	case model.RiskMedium:
		return w.medium.Sprint(r.String())
	case model.RiskLow:
		return w.low.Sprint(r.String())
	default:
		return r.String()
	}
}
