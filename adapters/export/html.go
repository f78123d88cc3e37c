package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"simplesurvey/domain/report"
)

// HTMLWriter renders a Markdown summary of the report as a standalone page
type HTMLWriter struct {
	Title string
}

// NewHTMLWriter creates an HTML report writer
func NewHTMLWriter(title string) *HTMLWriter {
	if title == "" {
		title = "Survey analysis"
	}
	return &HTMLWriter{Title: title}
}

func (w *HTMLWriter) ContentType() string { return "text/html; charset=utf-8" }
func (w *HTMLWriter) Extension() string   { return ".html" }

// Write renders the report
func (w *HTMLWriter) Write(out io.Writer, rep *report.Report) error {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	r := html.NewRenderer(html.RendererOptions{
		Title: w.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	_, err := out.Write(markdown.ToHTML([]byte(Markdown(w.Title, rep)), p, r))
	return err
}

// Markdown summarises the report: thresholds, counts, then one table for
// significant results and one for failures
func Markdown(title string, rep *report.Report) string {
	var b strings.Builder
	s := rep.Summary()

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Source:** %s\n", escape(rep.Source))
	fmt.Fprintf(&b, "- **Alpha:** %s, **Beta:** %s\n", formatNumber(rep.Alpha), formatNumber(rep.Beta))
	if len(rep.Filters) > 0 {
		fmt.Fprintf(&b, "- **Filters:** %s\n", escape(strings.Join(rep.Filters, ", ")))
	}
	fmt.Fprintf(&b, "- **Rows:** %d of %d after filters\n", rep.FilteredRows, rep.TotalRows)
	fmt.Fprintf(&b, "- **Computations:** %d evaluated, %d significant, %d not significant, %d failed\n\n",
		s.Evaluated, s.Passed, s.NotSignificant, s.Errors)

	b.WriteString("## Significant results\n\n")
	if len(rep.Results) == 0 {
		b.WriteString("No result met the thresholds.\n\n")
	} else {
		b.WriteString("| Question | Group | Test | Statistic | p | Effect | n |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, r := range rep.Results {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s %s | %d |\n",
				escape(r.Prompt), escape(r.GroupKey), r.TestName,
				formatNumber(r.Statistic), formatNumber(r.PValue),
				formatNumber(r.EffectSize), r.EffectUnit, r.N())
		}
		b.WriteString("\n")
	}

	if len(rep.Failures) > 0 {
		b.WriteString("## Failed computations\n\n")
		b.WriteString("| Question | Group | Test | Reason |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, r := range rep.Failures {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escape(r.Prompt), escape(r.GroupKey), r.TestName, escape(r.Reason))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Fingerprint `%s`\n", rep.Fingerprint.Short())
	return b.String()
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;")

func escape(s string) string { return mdEscaper.Replace(s) }
