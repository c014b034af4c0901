package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wenshu-pipeline/internal/components/chrono"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/config"
	"wenshu-pipeline/internal/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTestLog(t testing.TB, file string) Log {
	database, err := config.RunLogConfig{File: file}.OpenDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	now := chrono.FixedImpl{Time: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)}
	log, err := New(context.Background(), database, now, &telemetry.Recorder{})
	require.NoError(t, err)
	return log
}

func TestRunLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := openTestLog(t, ":memory:")

	run, err := log.Start(ctx, "download-parse", []string{"--keywords", "民间借贷"})
	require.NoError(t, err)
	require.NotEmpty(t, run.Id())

	require.NoError(t, run.Record(ctx, Item{Stage: db.STAGE_DOWNLOAD, Name: "doc-1", Status: "ok"}))
	require.NoError(t, run.Record(ctx, Item{Stage: db.STAGE_DOWNLOAD, Name: "doc-2", Status: "failed", Reason: "status 503"}))
	require.NoError(t, run.RecordAll(ctx, []Item{
		{Stage: db.STAGE_PARSE, Name: "doc-1", Status: "complete"},
		{Stage: db.STAGE_UPLOAD, Name: "doc-1.txt", Status: "ok", RemoteId: "remote-1"},
	}))
	require.NoError(t, run.Finish(ctx, 2, "1 failed"))

	stored, items, err := log.Get(ctx, run.Id())
	require.NoError(t, err)
	require.Equal(t, "download-parse", stored.Command)
	require.Equal(t, "--keywords 民间借贷", stored.Args)
	require.True(t, stored.ExitCode.Valid)
	require.EqualValues(t, 2, stored.ExitCode.Int64)
	require.Equal(t, "1 failed", stored.Summary)

	require.Len(t, items, 4)
	require.Equal(t, "status 503", items[1].Reason)
	require.EqualValues(t, 4, items[3].Seq)
	require.Equal(t, "remote-1", items[3].RemoteID)

	counts, err := log.Counts(ctx, run.Id())
	require.NoError(t, err)
	expected := []db.CountRunItemsRow{
		{Stage: db.STAGE_DOWNLOAD, Status: "failed", Count: 1},
		{Stage: db.STAGE_DOWNLOAD, Status: "ok", Count: 1},
		{Stage: db.STAGE_PARSE, Status: "complete", Count: 1},
		{Stage: db.STAGE_UPLOAD, Status: "ok", Count: 1},
	}
	if diff := cmp.Diff(expected, counts); diff != "" {
		t.Fatal("unexpected counts (-want +got)", diff)
	}
}

func TestRunLogFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "runs.db")

	first := openTestLog(t, path)
	run, err := first.Start(ctx, "upload", nil)
	require.NoError(t, err)
	require.NoError(t, run.Finish(ctx, 0, ""))

	second := openTestLog(t, path)
	runs, err := second.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.Id(), runs[0].ID)
}
