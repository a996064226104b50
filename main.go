// Package main is the entry point for the volt data CLI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"volt-data/config"
	"volt-data/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "volt",
		Short: "Volt data engineering tools",
		Long: `Volt data engineering tools: PostgreSQL schema and catalog migrations,
the S3 data lake, image uploads, presigned URLs, CSV to Parquet conversion
and the daily pipeline.

Configuration comes from a .env file (--env-file, default .env) and the
environment: POSTGRES_*, AWS_*, S3_BUCKET_NAME, S3_ENDPOINT, VOLT_ENV,
LOG_LEVEL, PORT and PIPELINE_*.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(
		schemaCmd(g),
		migrateCmd(g),
		crudCmd(g),
		lakeCmd(g),
		s3Cmd(g),
		exportCmd(g),
		imagesCmd(g),
		presignCmd(g),
		convertCmd(g),
		pipelineCmd(g),
		serveCmd(g),
	)
	return cmd
}

// setup loads configuration and builds the logger.
func (g *globalFlags) setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.envFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.FromConfig(cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

// confirm prints prompt and reports whether the answer is one of accepted.
// A read error or empty answer counts as no.
func confirm(in io.Reader, out io.Writer, prompt string, accepted ...string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	for _, a := range accepted {
		if answer == a {
			return true
		}
	}
	return false
}

// destructiveAnswers accept Polish and English confirmations.
var destructiveAnswers = []string{"tak", "yes", "y", "t"}
