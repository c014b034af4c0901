package commands

import (
	"fmt"
	"strings"

	"wenshu-pipeline/internal/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// renderSummary formats the counts of a run and the list of its failures.
func renderSummary(command string, s pipeline.Summary) string {
	counts := newTable()
	counts.SetTitle(fmt.Sprintf("wenshu %s", command))
	counts.AppendHeader(table.Row{"Stage", "Outcome", "Count"})
	counts.AppendRows([]table.Row{
		{"search", "hits", s.Searched},
		{"download", "saved", s.Downloaded},
		{"download", "skipped", s.Skipped},
		{"download", "failed", s.DownloadFailed},
		{"parse", "complete", s.Complete},
		{"parse", "partial", s.Partial},
		{"parse", "failed", s.Failed},
		{"upload", "uploaded", s.Uploaded},
		{"upload", "rejected", s.Rejected},
		{"upload", "skipped", s.UploadSkipped},
	})

	var out strings.Builder
	out.WriteString(counts.Render())
	out.WriteString("\n")

	if len(s.Failures) > 0 {
		failures := newTable()
		failures.SetTitle("failures")
		failures.AppendHeader(table.Row{"Stage", "Item", "Reason"})
		for _, f := range s.Failures {
			failures.AppendRow(table.Row{f.Stage, f.Name, f.Reason})
		}
		out.WriteString(failures.Render())
		out.WriteString("\n")
	}
	return out.String()
}
