package commands

import (
	"fmt"
	"os"
	"time"

	"wenshu-pipeline/internal/runlog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run id]",
	Short: "Lists recent runs, or the items of a single run.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		database, err := a.cfg.RunLog.OpenDB()
		if err != nil {
			return err
		}
		defer database.Close()
		log, err := runlog.New(ctx, database, a.time, a.tel)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			run, items, err := log.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get run %s: %w", args[0], err)
			}
			t := newTable()
			t.SetOutputMirror(os.Stdout)
			t.SetTitle(fmt.Sprintf("%s %s", run.Command, run.Args))
			t.AppendHeader(table.Row{"#", "Stage", "Item", "Status", "Reason", "Remote id"})
			for _, item := range items {
				t.AppendRow(table.Row{item.Seq, item.Stage, item.Name, item.Status, item.Reason, item.RemoteID})
			}
			t.Render()
			return nil
		}

		runs, err := log.Recent(ctx, runsLimit)
		if err != nil {
			return err
		}
		t := newTable()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Command", "Started", "Exit code", "Summary"})
		for _, run := range runs {
			exit := "-"
			if run.ExitCode.Valid {
				exit = fmt.Sprint(run.ExitCode.Int64)
			}
			started := time.Unix(run.StartedAt, 0).In(a.time.Location()).Format(time.DateTime)
			t.AppendRow(table.Row{run.ID, run.Command, started, exit, run.Summary})
		}
		t.Render()
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(runsCmd)
}
