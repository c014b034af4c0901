package commands

import (
	"os"

	"wenshu-pipeline/internal/components/serviceutil"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/config"
	"wenshu-pipeline/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	configFile string
	debug      bool
	dumpHttp   string
)

// exitCode is set by a command that finished with incomplete items.
var exitCode = pipeline.ExitOk

var rootCmd = &cobra.Command{
	Use:   "wenshu",
	Short: "wenshu downloads and parses judgements from China Judgements Online and uploads them to a document api.",
	// runtime errors are not usage errors
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultFile, "the configuration file, <name>.local.json5 next to it overrides it")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "write every http request and response to this directory")
}

func Execute() {
	ctx := serviceutil.SignalContext()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(pipeline.ExitFatal)
	}
	os.Exit(exitCode)
}
