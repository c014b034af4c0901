package commands

import (
	"context"
	"fmt"

	"wenshu-pipeline/internal/pipeline"
	"wenshu-pipeline/internal/store"
	"wenshu-pipeline/internal/wenshu"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// searchFlags are the flags shared by the commands that search the site.
type searchFlags struct {
	keywords     string
	maxPages     int
	caseType     string
	court        string
	dateFrom     string
	dateTo       string
	cookie       string
	proxy        string
	skipExisting bool
}

func (f *searchFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.keywords, "keywords", "", "search keywords (required)")
	flags.IntVar(&f.maxPages, "max_pages", wenshu.DefaultMaxPages, "maximum number of result pages")
	flags.StringVar(&f.caseType, "case_type", "", "case type filter")
	flags.StringVar(&f.court, "court", "", "court name filter")
	flags.StringVar(&f.dateFrom, "date_from", "", "earliest decision date (YYYY-MM-DD)")
	flags.StringVar(&f.dateTo, "date_to", "", "latest decision date (YYYY-MM-DD)")
	flags.StringVar(&f.cookie, "cookie", "", "session cookie of a logged in browser, recommended to avoid anti-scraping measures")
	flags.StringVar(&f.proxy, "proxy", "", "proxy server, formatted as 'http://ip:port'")
	flags.BoolVar(&f.skipExisting, "skip-existing", false, "do not download pages that are already in the download dir")
}

func (f *searchFlags) query(pageSize int) (wenshu.SearchQuery, error) {
	return wenshu.NewSearchQuery(f.keywords, wenshu.QueryOptions{
		CaseType: f.caseType,
		Court:    f.court,
		DateFrom: f.dateFrom,
		DateTo:   f.dateTo,
		MaxPages: f.maxPages,
		PageSize: pageSize,
	})
}

// searchOptions fills in the components of a search stage.
func (f *searchFlags) searchOptions(a *app, opts pipeline.Options) (pipeline.Options, wenshu.SearchQuery, error) {
	q, err := f.query(a.cfg.Fetch.PageSize)
	if err != nil {
		return opts, q, err
	}
	fetch, err := a.newFetcher(f.cookie, f.proxy)
	if err != nil {
		return opts, q, fmt.Errorf("create fetcher: %w", err)
	}
	extractor, err := a.newExtractor(fetch)
	if err != nil {
		return opts, q, err
	}
	opts.Searcher = wenshu.NewPaginator(a.cfg.Fetch.BaseUrl, fetch, a.time, a.tel)
	opts.Extractor = extractor
	opts.SkipExisting = f.skipExisting
	return opts, q, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

var downloadFlags searchFlags
var downloadOutputDir string

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Searches for judgements and saves their detail pages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (pipeline.Summary, error) {
			opts, q, err := downloadFlags.searchOptions(a, opts)
			if err != nil {
				return pipeline.Summary{}, err
			}
			opts.Store = store.New(orDefault(downloadOutputDir, a.cfg.Store.DownloadDir), a.cfg.Store.ParsedDir)
			return pipeline.New(opts, a.tel).Download(ctx, q)
		})
	},
}

var downloadParseFlags searchFlags
var (
	downloadParseDownloadDir string
	downloadParseParseDir    string
	downloadParseUpload      bool
)

var downloadParseCmd = &cobra.Command{
	Use:   "download-parse",
	Short: "Searches for judgements, saves their detail pages and parses them into records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (pipeline.Summary, error) {
			opts, q, err := downloadParseFlags.searchOptions(a, opts)
			if err != nil {
				return pipeline.Summary{}, err
			}
			if downloadParseUpload {
				opts.Uploader, err = a.newUploader()
				if err != nil {
					return pipeline.Summary{}, err
				}
			}
			opts.Store = store.New(
				orDefault(downloadParseDownloadDir, a.cfg.Store.DownloadDir),
				orDefault(downloadParseParseDir, a.cfg.Store.ParsedDir),
			)

			p := pipeline.New(opts, a.tel)
			summary, err := p.DownloadParse(ctx, q)
			if err != nil || !downloadParseUpload {
				return summary, err
			}
			uploaded, err := p.Upload(ctx, opts.Store.ParsedDir())
			return merge(summary, uploaded), err
		})
	},
}

// merge adds the upload outcome of `upload` to `summary`.
func merge(summary, upload pipeline.Summary) pipeline.Summary {
	summary.Uploaded += upload.Uploaded
	summary.Rejected += upload.Rejected
	summary.UploadSkipped += upload.UploadSkipped
	summary.Failures = append(summary.Failures, upload.Failures...)
	return summary
}

func init() {
	downloadFlags.register(downloadCmd.Flags())
	downloadCmd.Flags().StringVar(&downloadOutputDir, "output_dir", "", "directory of the downloaded pages (default from config, ./wenshu_downloads)")
	downloadCmd.MarkFlagRequired("keywords")
	rootCmd.AddCommand(downloadCmd)

	downloadParseFlags.register(downloadParseCmd.Flags())
	downloadParseCmd.Flags().StringVar(&downloadParseDownloadDir, "download_dir", "", "directory of the downloaded pages (default from config, ./wenshu_downloads)")
	downloadParseCmd.Flags().StringVar(&downloadParseParseDir, "parse_dir", "", "directory of the parsed records (default from config, ./wenshu_parsed)")
	downloadParseCmd.Flags().BoolVar(&downloadParseUpload, "upload", false, "upload the parsed records afterwards")
	downloadParseCmd.MarkFlagRequired("keywords")
	rootCmd.AddCommand(downloadParseCmd)
}
