package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"cvcraft/internal/common"
	"cvcraft/internal/engine"
	"cvcraft/internal/errors"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
	"cvcraft/internal/watch"
)

const watchDebounce = 300 * time.Millisecond

type scoreOptions struct {
	common.CommandConfig
	totalOnly bool
	watch     bool
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score [resume-file...]",
		Short: "Compute the ATS score breakdown of one or more resumes",
		Long: `Compute the ATS score breakdown of one or more resumes.

The total (0-100) combines four weighted categories:
- Keywords (35): impact, leadership and collaboration terms, plus skill mentions
- Completeness (25): summary, experience, education, skills and projects
- Experience (20): action verbs, metrics and bullet lengths
- Formatting (20): summary length and readable bullets

Several files are scored concurrently. Use --watch to re-score a single
file whenever it changes.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch && len(args) != 1 {
				return fmt.Errorf("--watch takes exactly one file, got %d", len(args))
			}
			return prepareOutput(cmd, &opts.CommandConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, args, opts)
		},
	}

	addOutputFlags(cmd, &opts.CommandConfig, "format")
	cmd.Flags().BoolVar(&opts.totalOnly, "total-only", false, "Print only the total score")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-score the file on every change")
	return cmd
}

func runScore(cmd *cobra.Command, args []string, opts *scoreOptions) error {
	cfg, logger, err := commandDeps(cmd)
	if err != nil {
		return err
	}
	svc, err := newEngine(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}

	if opts.watch {
		return watchScore(cmd.Context(), svc, logger, args[0], opts)
	}
	return scoreFiles(cmd.Context(), svc, logger, args, opts)
}

func scoreFiles(ctx context.Context, svc *engine.Service, logger *errors.Logger, files []string, opts *scoreOptions) error {
	if opts.totalOnly {
		return printTotals(ctx, svc, logger, files, opts)
	}

	logDetails := func(files []string, cfg common.CommandConfig) {
		logger.Info("Scoring resumes", "files", len(files), "output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, files []string, docs []*resume.Document) (any, error) {
		breakdowns, err := svc.BatchScore(ctx, docs)
		if err != nil {
			return nil, err
		}
		if len(breakdowns) == 1 {
			return breakdowns[0], nil
		}
		scores := make([]types.FileScore, len(files))
		for i, file := range files {
			scores[i] = types.FileScore{File: file, Breakdown: breakdowns[i]}
		}
		return scores, nil
	}

	if err := common.RunDocumentCommand(ctx, logger, opts.CommandConfig, files, operation, logDetails); err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	return nil
}

// printTotals writes one score per line, prefixed with the file name when
// more than one file was given.
func printTotals(ctx context.Context, svc *engine.Service, logger *errors.Logger, files []string, opts *scoreOptions) error {
	docs, err := common.NewFileProcessor(logger, opts.Decode).WithMaxSize(opts.MaxFileSize).LoadDocuments(files...)
	if err != nil {
		return err
	}
	breakdowns, err := svc.BatchScore(ctx, docs)
	if err != nil {
		return err
	}

	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}
	for i, b := range breakdowns {
		if len(files) == 1 {
			_, err = fmt.Fprintln(out, b.TotalScore)
		} else {
			_, err = fmt.Fprintf(out, "%s: %d\n", files[i], b.TotalScore)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// watchScore scores the file once, then again after every change, until ctx
// is cancelled. Invalid intermediate saves are logged, not fatal.
func watchScore(ctx context.Context, svc *engine.Service, logger *errors.Logger, file string, opts *scoreOptions) error {
	rescore := func() {
		if err := scoreFiles(ctx, svc, logger, []string{file}, opts); err != nil {
			logger.LogError(err, "Re-score failed", "file", file)
		}
	}

	if err := scoreFiles(ctx, svc, logger, []string{file}, opts); err != nil {
		return err
	}

	w := watch.New("resume", []string{file}, watchDebounce, rescore, logger)
	if err := w.Start(); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	logger.Info("Watching resume for changes", "file", file)
	<-ctx.Done()
	return nil
}
