package commands

import (
	"context"

	"wenshu-pipeline/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	uploadInputDir  string
	uploadOutputDir string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Uploads the parsed records in a directory to the document api.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (pipeline.Summary, error) {
			uploader, err := a.newUploader()
			if err != nil {
				return pipeline.Summary{}, err
			}
			opts.Uploader = uploader
			opts.ResultsDir = uploadOutputDir
			return pipeline.New(opts, a.tel).Upload(ctx, uploadInputDir)
		})
	},
}

var (
	uploadFilesInputDir  string
	uploadFilesOutputDir string
)

var uploadFilesCmd = &cobra.Command{
	Use:   "upload-files",
	Short: "Uploads the text, markdown, pdf and docx files in a directory to the document api.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (pipeline.Summary, error) {
			uploader, err := a.newUploader()
			if err != nil {
				return pipeline.Summary{}, err
			}
			opts.Uploader = uploader
			opts.ResultsDir = uploadFilesOutputDir
			return pipeline.New(opts, a.tel).UploadFiles(
				ctx,
				uploadFilesInputDir,
				a.cfg.Ragflow.SupportedExtensions,
				a.cfg.Ragflow.MaxFileSizeBytes(),
			)
		})
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadInputDir, "input_dir", "", "directory of the parsed records (required)")
	uploadCmd.MarkFlagRequired("input_dir")
	uploadCmd.Flags().StringVar(&uploadOutputDir, "output_dir", "", "write "+pipeline.UploadResultsFile+" to this directory")
	rootCmd.AddCommand(uploadCmd)

	uploadFilesCmd.Flags().StringVar(&uploadFilesInputDir, "input_dir", "", "directory of the files to upload (required)")
	uploadFilesCmd.MarkFlagRequired("input_dir")
	uploadFilesCmd.Flags().StringVar(&uploadFilesOutputDir, "output_dir", "", "write "+pipeline.UploadResultsFile+" to this directory")
	rootCmd.AddCommand(uploadFilesCmd)
}
