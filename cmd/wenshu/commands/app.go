package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"wenshu-pipeline/internal/components/chrono"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/config"
	"wenshu-pipeline/internal/extract"
	"wenshu-pipeline/internal/fetcher"
	"wenshu-pipeline/internal/notify"
	"wenshu-pipeline/internal/pipeline"
	"wenshu-pipeline/internal/ragflow"
	"wenshu-pipeline/internal/runlog"
	"wenshu-pipeline/internal/wenshu"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	report_app_runlog = "app.runlog"
	report_app_notify = "app.notify"
)

// app holds what every command needs, it is built once per invocation.
type app struct {
	cfg       config.Config
	tel       telemetry.API
	time      chrono.API
	dump      *telemetry.FilesystemOutput
	telemetry telemetry.Telemetry
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:  cfg,
		tel:  telemetry.SlogAPI{},
		time: clock,
	}
	if dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return nil, fmt.Errorf("dump-http: %w", err)
		}
		a.dump = &output
	}

	a.telemetry, err = telemetry.Setup(ctx, "wenshu", cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	return a, nil
}

// dumpOutput is nil unless --dump-http is set.
func (a *app) dumpOutput(scope string) telemetry.InstrumentOutput {
	if a.dump == nil {
		return nil
	}
	return a.dump.Scoped(scope)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	telemetry.ReportPerfStats(ctx, a.tel)
	err := a.telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
}

func (a *app) newFetcher(cookie, proxy string) (*fetcher.Fetcher, error) {
	fc := a.cfg.Fetch
	return fetcher.New(fetcher.Options{
		Headers:          wenshu.SessionHeaders(fc.BaseUrl),
		UserAgent:        fc.UserAgent,
		Cookie:           cookie,
		Proxy:            proxy,
		Timeout:          fc.TimeoutDuration(),
		MaxRetries:       fc.Retries(),
		RateLimit:        fetcher.NewRateLimit(fc.MinDelayDuration(), fc.MaxDelayDuration(), fc.RequestsPerSecond),
		BypassCloudflare: true,
		DumpHttp:         a.dumpOutput("fetcher"),
	}, a.tel)
}

func (a *app) newExtractor(f *fetcher.Fetcher) (extract.Extractor, error) {
	policy := extract.DefaultPolicy()
	if len(a.cfg.Extract.RequiredFields) > 0 {
		var err error
		policy, err = extract.NewPolicy(a.cfg.Extract.RequiredFields)
		if err != nil {
			return extract.Extractor{}, err
		}
	}
	// parse never fetches
	var detail extract.Fetcher
	if f != nil {
		detail = f
	}
	return extract.NewExtractor(a.cfg.Fetch.BaseUrl, detail, policy, a.tel), nil
}

func (a *app) newUploader() (ragflow.Uploader, error) {
	err := a.cfg.RequireUpload()
	if err != nil {
		return ragflow.Uploader{}, err
	}
	client, err := ragflow.NewClient(ragflow.ClientOptions{
		ApiUrl:   a.cfg.Ragflow.ApiUrl,
		ApiKey:   a.cfg.Ragflow.ApiKey,
		Timeout:  a.cfg.Ragflow.TimeoutDuration(),
		DumpHttp: a.dumpOutput("ragflow"),
	}, a.tel)
	if err != nil {
		return ragflow.Uploader{}, err
	}
	return ragflow.NewUploader(client, a.tel), nil
}

// startRun opens the run log, a run log that cannot be opened only loses
// the history of this run.
func (a *app) startRun(ctx context.Context, cmd *cobra.Command) (*runlog.Run, func()) {
	database, err := a.cfg.RunLog.OpenDB()
	if err != nil {
		a.tel.ReportWarning(report_app_runlog, err)
		return nil, func() {}
	}
	log, err := runlog.New(ctx, database, a.time, a.tel)
	if err != nil {
		a.tel.ReportWarning(report_app_runlog, err)
		database.Close()
		return nil, func() {}
	}
	run, err := log.Start(ctx, cmd.Name(), flagArgs(cmd))
	if err != nil {
		a.tel.ReportWarning(report_app_runlog, err)
		database.Close()
		return nil, func() {}
	}
	return run, func() { database.Close() }
}

// flagArgs lists the flags that were set on the command line.
func flagArgs(cmd *cobra.Command) []string {
	var out []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "cookie" {
			out = append(out, "--cookie=<redacted>")
			return
		}
		out = append(out, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
	})
	return out
}

// stage is one of the pipeline operations.
type stage func(ctx context.Context, a *app, opts pipeline.Options) (pipeline.Summary, error)

// runStage sets up the app and the run log, runs the stage, prints and mails
// the summary and sets the exit code.
func runStage(cmd *cobra.Command, fn stage) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	run, closeRun := a.startRun(ctx, cmd)
	defer closeRun()

	opts := pipeline.Options{}
	if run != nil {
		opts.Run = run
	}

	summary, err := fn(ctx, a, opts)
	code := summary.ExitCode()
	if err != nil {
		code = pipeline.ExitFatal
	}

	text := renderSummary(cmd.Name(), summary)
	fmt.Fprint(os.Stdout, text)

	if run != nil {
		// the run may have been cancelled, the outcome is still recorded
		finishErr := run.Finish(context.WithoutCancel(ctx), code, summary.String())
		if finishErr != nil {
			a.tel.ReportWarning(report_app_runlog, finishErr)
		}
	}

	notifier := notify.NewNotifier(a.cfg.Notify)
	if notifier.Enabled() {
		subject := fmt.Sprintf("wenshu %s: exit code %d", cmd.Name(), code)
		if err != nil {
			text = fmt.Sprintf("%s\nerror: %s\n", text, err.Error())
		}
		sendErr := notifier.Send(context.WithoutCancel(ctx), subject, text)
		if sendErr != nil {
			a.tel.ReportWarning(report_app_notify, sendErr)
		}
	}

	if err != nil {
		return err
	}
	exitCode = code
	return nil
}
