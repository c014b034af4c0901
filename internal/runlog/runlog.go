// Package runlog records the outcome of every item processed by a command
// run in a sqlite database.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/chrono"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/runlog")

const report_run_record = "run.record"

type Log struct {
	database *sql.DB
	qry      *db.Queries
	makeTx   db.MakeTx
	time     chrono.API
	tel      telemetry.API
}

// New creates the tables if needed.
func New(ctx context.Context, database *sql.DB, time chrono.API, tel telemetry.API) (Log, error) {
	assert.NotNil(database)
	assert.NotNil(time)
	assert.NotNil(tel)

	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return Log{}, fmt.Errorf("create run log schema: %w", err)
	}
	return Log{
		database: database,
		qry:      db.New(database),
		makeTx:   db.NewMakeTx(database),
		time:     time,
		tel:      telemetry.NewScopedAPI("runlog", tel),
	}, nil
}

// Item is the outcome of a single document or file.
type Item struct {
	Stage    string
	Name     string
	Status   string
	Reason   string
	RemoteId string
}

// Run is a single command invocation, it is not safe for concurrent use.
type Run struct {
	id  string
	seq int64
	log Log
}

func (l Log) Start(ctx context.Context, command string, args []string) (*Run, error) {
	ctx, span := tracer.Start(ctx, "Start")
	defer span.End()

	id := uuid.NewString()
	span.SetAttributes(attribute.String("run", id), attribute.String("command", command))

	err := l.qry.CreateRun(ctx, db.CreateRunParams{
		ID:        id,
		Command:   command,
		Args:      strings.Join(args, " "),
		StartedAt: l.time.Now().Unix(),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &Run{id: id, log: l}, nil
}

func (r *Run) Id() string {
	return r.id
}

// Record appends an item to the run, failures are reported and returned but
// never stop the run.
func (r *Run) Record(ctx context.Context, item Item) error {
	r.seq++
	err := r.log.qry.AddRunItem(ctx, db.AddRunItemParams{
		RunID:    r.id,
		Seq:      r.seq,
		Stage:    item.Stage,
		Name:     item.Name,
		Status:   item.Status,
		Reason:   item.Reason,
		RemoteID: item.RemoteId,
	})
	if err != nil {
		r.log.tel.ReportWarning(report_run_record, r.id, item.Name, err)
		return err
	}
	return nil
}

// RecordAll appends several items in one transaction.
func (r *Run) RecordAll(ctx context.Context, items []Item) error {
	tx, discard, commit, err := r.log.makeTx(ctx)
	if err != nil {
		r.log.tel.ReportWarning(report_run_record, r.id, "begin", err)
		return err
	}
	defer discard()

	// a rolled back batch must not leave a gap in the sequence
	start := r.seq
	for _, item := range items {
		r.seq++
		err := tx.AddRunItem(ctx, db.AddRunItemParams{
			RunID:    r.id,
			Seq:      r.seq,
			Stage:    item.Stage,
			Name:     item.Name,
			Status:   item.Status,
			Reason:   item.Reason,
			RemoteID: item.RemoteId,
		})
		if err != nil {
			r.seq = start
			r.log.tel.ReportWarning(report_run_record, r.id, item.Name, err)
			return err
		}
	}
	err = commit()
	if err != nil {
		r.seq = start
		r.log.tel.ReportWarning(report_run_record, r.id, "commit", err)
		return err
	}
	return nil
}

func (r *Run) Finish(ctx context.Context, exitCode int, summary string) error {
	return r.log.qry.FinishRun(ctx, db.FinishRunParams{
		ID:         r.id,
		FinishedAt: sql.NullInt64{Int64: r.log.time.Now().Unix(), Valid: true},
		ExitCode:   sql.NullInt64{Int64: int64(exitCode), Valid: true},
		Summary:    summary,
	})
}

func (l Log) Get(ctx context.Context, runId string) (db.Run, []db.RunItem, error) {
	run, err := l.qry.GetRun(ctx, runId)
	if err != nil {
		return db.Run{}, nil, err
	}
	items, err := l.qry.GetRunItems(ctx, runId)
	if err != nil {
		return db.Run{}, nil, err
	}
	return run, items, nil
}

// Counts returns the number of items per stage and status of a run.
func (l Log) Counts(ctx context.Context, runId string) ([]db.CountRunItemsRow, error) {
	return l.qry.CountRunItems(ctx, runId)
}

func (l Log) Recent(ctx context.Context, limit int) ([]db.Run, error) {
	return l.qry.ListRecentRuns(ctx, int64(limit))
}
