package commands

import (
	"context"

	"wenshu-pipeline/internal/pipeline"
	"wenshu-pipeline/internal/store"

	"github.com/spf13/cobra"
)

var (
	parseInputDir  string
	parseOutputDir string
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parses every downloaded page in a directory into records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (pipeline.Summary, error) {
			extractor, err := a.newExtractor(nil)
			if err != nil {
				return pipeline.Summary{}, err
			}
			opts.Extractor = extractor
			opts.Store = store.New(parseInputDir, orDefault(parseOutputDir, a.cfg.Store.ParsedDir))
			return pipeline.New(opts, a.tel).Parse(ctx)
		})
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseInputDir, "input_dir", "", "directory of the downloaded pages (required)")
	parseCmd.Flags().StringVar(&parseOutputDir, "output_dir", "", "directory of the parsed records (default from config, ./wenshu_parsed)")
	parseCmd.MarkFlagRequired("input_dir")
	rootCmd.AddCommand(parseCmd)
}
