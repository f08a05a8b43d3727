package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/portvapt/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer. It accepts the common options but uses none of them.
func NewMarkdownWriter(output io.Writer, _ ...Option) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one table row per port followed by the general
// recommendations.
func (w *MarkdownWriter) Write(results []model.VaptResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := model.Summarize(results)

	md.H1("Vulnerability Assessment and Penetration Testing Report")
	md.PlainText("")

	w.writeResults(md, results)
	w.writeSummary(md, summary)
	w.writeRecommendations(md, summary)

	return len(md.String()), md.Build()
}

// writeResults writes the per-port table.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, results []model.VaptResult) {
	if len(results) == 0 {
		md.PlainText("No open ports were assessed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			strconv.Itoa(int(r.Port)),
			r.Service,
			r.RiskLevel.String(),
			vulnerabilityCell(r.Vulnerabilities),
			recommendationCell(r.Recommendations),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Port", "Service", "Risk Level", "Vulnerabilities", "Recommendations"},
		Rows:   rows,
	})
	md.PlainText("")
}

func vulnerabilityCell(vulns []model.Vulnerability) string {
	if len(vulns) == 0 {
		return "None"
	}
	parts := make([]string, len(vulns))
	for i, v := range vulns {
		parts[i] = fmt.Sprintf("**%s**: %s (%s). Remediation: %s",
			escapeCell(v.Name), escapeCell(v.Description), v.Severity, escapeCell(v.Remediation))
	}
	return strings.Join(parts, "<br>")
}

func recommendationCell(recs []string) string {
	if len(recs) == 0 {
		return "None"
	}
	escaped := make([]string, len(recs))
	for i, r := range recs {
		escaped[i] = escapeCell(r)
	}
	return strings.Join(escaped, "<br>")
}

// escapeCell keeps a pipe in finding text from splitting the table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// writeSummary writes the risk distribution chart and an alert matching
// the worst port.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.Summary) {
	if s.Total == 0 {
		return
	}

	md.H2("Risk Summary")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Ports by Risk Level"),
		piechart.WithShowData(true),
	)
	for _, level := range model.AllRiskLevels() {
		if n := s.Counts[level]; n > 0 {
			chart.LabelAndIntValue(level.String(), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	switch s.HighestRisk() {
	case model.RiskCritical:
		md.Cautionf("%d port(s) at CRITICAL risk require immediate attention.", s.CriticalCount)
	case model.RiskHigh:
		md.Warningf("%d port(s) at HIGH risk should be addressed.", s.HighCount)
	case model.RiskMedium:
		md.Importantf("%d port(s) at MEDIUM risk.", s.MediumCount)
	default:
		md.Note("Only low risk services detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, s *model.Summary) {
	md.H2("General Recommendations")
	md.PlainText("")
	if len(s.GeneralRecommendations) == 0 {
		md.PlainText("None")
		return
	}
	md.BulletList(s.GeneralRecommendations...)
}
