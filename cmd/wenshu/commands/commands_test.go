package commands

import (
	"errors"
	"testing"

	"wenshu-pipeline/internal/pipeline"
	"wenshu-pipeline/internal/wenshu"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestRenderSummary(t *testing.T) {
	text := renderSummary("upload", pipeline.Summary{
		Uploaded: 2,
		Rejected: 1,
		Failures: []pipeline.Failure{{Stage: "upload", Name: "doc-2.txt", Reason: "status 500"}},
	})
	require.Contains(t, text, "wenshu upload")
	require.Contains(t, text, "uploaded")
	require.Contains(t, text, "doc-2.txt")
	require.Contains(t, text, "status 500")

	clean := renderSummary("parse", pipeline.Summary{Complete: 1})
	require.NotContains(t, clean, "failures")
}

func TestSearchFlagsQuery(t *testing.T) {
	flags := searchFlags{keywords: " 民间借贷 ", maxPages: 2, dateFrom: "2020-01-01"}
	q, err := flags.query(20)
	require.NoError(t, err)
	require.Equal(t, "民间借贷", q.Keyword())
	require.Equal(t, 2, q.MaxPages())
	require.Equal(t, 20, q.PageSize())

	flags = searchFlags{keywords: "合同", dateFrom: "2021-01-01", dateTo: "2020-01-01"}
	_, err = flags.query(10)
	require.True(t, errors.Is(err, wenshu.ErrInvalidQuery))
}

func TestMerge(t *testing.T) {
	parsed := pipeline.Summary{Complete: 3}
	uploaded := pipeline.Summary{
		Uploaded: 2,
		Rejected: 1,
		Failures: []pipeline.Failure{{Stage: "upload", Name: "doc-2.txt"}},
	}
	merged := merge(parsed, uploaded)
	require.Equal(t, 3, merged.Complete)
	require.Equal(t, 2, merged.Uploaded)
	require.Equal(t, pipeline.ExitIncomplete, merged.ExitCode())
}

func TestFlagArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "download"}
	var f searchFlags
	f.register(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--keywords", "民间借贷", "--cookie", "SESSION=secret", "--max_pages", "2"}))

	args := flagArgs(cmd)
	require.ElementsMatch(t, []string{"--keywords=民间借贷", "--cookie=<redacted>", "--max_pages=2"}, args)
}

func TestSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"download", "parse", "download-parse", "upload", "upload-files", "runs"} {
		require.True(t, names[name], name)
	}
}
