// lowering assembles register-allocated instruction sequences into x64 code
// objects and keeps the results in a LevelDB code cache.
package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/colorfulnotion/lowering/log"
	"github.com/colorfulnotion/lowering/telemetry"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

type globalFlags struct {
	logLevel          string
	debug             string
	telemetryEndpoint string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	var tel *telemetry.Client

	rootCmd := &cobra.Command{
		Use:           "lowering",
		Short:         "Code generator back end: instruction sequences to x64 code objects",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := log.ParseLevel(flags.logLevel); err != nil {
				return err
			}
			log.InitLogger(flags.logLevel)
			log.EnableModules(flags.debug)

			tel = telemetry.NewNoOpClient()
			if flags.telemetryEndpoint != "" {
				tel = telemetry.NewClient(flags.telemetryEndpoint)
			}
			if err := tel.Connect(cmd.Context()); err != nil {
				log.Warn(log.CodegenMonitoring, "telemetry disabled", "err", err)
				tel = telemetry.NewNoOpClient()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if tel == nil {
				return nil
			}
			return tel.Close(context.Background())
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	pf.StringVar(&flags.debug, "debug", "", "comma separated log modules to enable (codegen,gap,safepoint,deopt,codestore or all)")
	pf.StringVar(&flags.telemetryEndpoint, "telemetry", "", "OTLP/HTTP endpoint (host:port) to export code generation spans to")

	rootCmd.AddCommand(newCompileCmd(), newInspectCmd(), newDiffCmd(), newCacheCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
