package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cvcraft/internal/cache"
	"cvcraft/internal/common"
	"cvcraft/internal/config"
	"cvcraft/internal/engine"
	"cvcraft/internal/errors"
	"cvcraft/internal/export"
	"cvcraft/internal/observability"
	"cvcraft/internal/resume"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cvcraft",
		Short: "Score resumes for ATS compatibility and export readiness",
		Long: `cvcraft scores structured resumes (JSON or YAML) the way an applicant
tracking system would: keyword coverage, section completeness, experience
quality and formatting signals. It also reports whether a resume is ready
for export and suggests section-level improvements.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newScoreCmd(),
		newReadinessCmd(),
		newExportCheckCmd(),
		newTipsCmd(),
		newSampleCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI with config and logger attached to ctx.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return ExecuteArgs(ctx, cfg, logger, nil)
}

// ExecuteArgs is Execute with explicit arguments. Nil args means os.Args.
func ExecuteArgs(ctx context.Context, cfg *config.Config, logger *errors.Logger, args []string) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)

	rootCmd := NewRootCmd()
	if args != nil {
		rootCmd.SetArgs(args)
	}
	return rootCmd.ExecuteContext(ctx)
}

func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

// commandDeps loads the config and logger placed in the context by Execute.
func commandDeps(cmd *cobra.Command) (*config.Config, *errors.Logger, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// addOutputFlags registers the output flags shared by every reporting command.
func addOutputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig, formatFlag string) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, formatFlag, "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc(formatFlag, func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// prepareOutput resolves the output format against the config and wires the
// command's stdout and decode options. Used from PreRunE.
func prepareOutput(cmd *cobra.Command, cmdConfig *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	format, err := common.ResolveOutputFormat(cmdConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return err
	}
	cmdConfig.OutputFormat = format
	cmdConfig.Decode = resume.DecodeOptions{ValidateSchema: cfg.Scoring.ValidateSchema}
	cmdConfig.MaxFileSize = cfg.App.MaxFileSize
	cmdConfig.Stdout = cmd.OutOrStdout()
	return nil
}

// newEngine builds the scoring service from config. om may be nil.
func newEngine(ctx context.Context, cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) (*engine.Service, error) {
	c, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		Cache:         c,
		CacheTTL:      cfg.Cache.TTL,
		KeyPrefix:     cfg.Cache.KeyPrefix,
		Policy:        export.NewPolicy(cfg.Scoring.MinExportScore, cfg.Scoring.ExportFormats),
		Observability: om,
		Logger:        logger,
		Concurrency:   cfg.Scoring.BatchConcurrency,
	}), nil
}
