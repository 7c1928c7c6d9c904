package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/draco-tlw/rayzor/internal/logging"
	"github.com/draco-tlw/rayzor/internal/pipeline"
	"github.com/draco-tlw/rayzor/internal/settings"
)

// NewRunCommand builds the `run` subcommand: the full parse, dedupe,
// filter, batch, probe, retry, and sink pipeline.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Test every link in the input file and report the active ones",
		RunE:  runRun,
	}

	fs := cmd.Flags()
	fs.String("input", "", "path to the file of links to test")
	fs.String("results", "", "path to write the CSV results report")
	fs.String("active", "", "path to write the plain-text list of active links")
	fs.String("core-path", "", "path to the proxy core binary")
	fs.Int("base-port", 0, "first local port assigned to a batch slot")
	fs.Int("batch-size", 0, "number of links tested per core invocation")
	fs.Int("max-workers", 0, "maximum concurrent probes per batch")
	fs.Int("max-retries", 0, "maximum retry rounds for still-failing links")
	fs.Int("timeout-seconds", 0, "per-probe timeout in seconds")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: console or json")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	s, err := settings.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger, err := logging.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	if raw, err := s.MarshalIndent(); err == nil {
		logger.Debug("effective settings", zap.ByteString("settings", raw))
	}

	return pipeline.Run(context.Background(), s, logger)
}
