package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cvcraft/internal/common"
	"cvcraft/internal/errors"
	"cvcraft/internal/export"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

func newExportCheckCmd() *cobra.Command {
	var cmdConfig common.CommandConfig
	var target string

	cmd := &cobra.Command{
		Use:   "export-check [resume-file]",
		Short: "Evaluate the export gate for a resume",
		Long: `Evaluate the export gate for a resume.

A resume can be exported when it passes the readiness checks and its ATS
score meets the configured minimum (70 by default). With --format the
command also requests a mock export to that target and exits non-zero
when the gate blocks it.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cmdConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := commandDeps(cmd)
			if err != nil {
				return err
			}
			svc, err := newEngine(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}

			// A blocked export still prints its decision; the error is
			// returned afterwards so the exit status reflects it.
			var blocked error
			operation := func(ctx context.Context, _ []string, docs []*resume.Document) (types.ExportCheckResponse, error) {
				if target == "" {
					decision, err := svc.ExportDecision(ctx, docs[0])
					return types.ExportCheckResponse{Decision: decision}, err
				}
				decision, receipt, err := svc.Export(ctx, docs[0], target)
				if errors.CodeOf(err) == errors.ErrCodeExportBlocked {
					blocked = err
					return types.ExportCheckResponse{Decision: decision}, nil
				}
				if err != nil {
					return types.ExportCheckResponse{}, err
				}
				return types.ExportCheckResponse{Decision: decision, Receipt: &receipt}, nil
			}

			logDetails := func(files []string, _ common.CommandConfig) {
				logger.Info("Checking export gate", "file", files[0], "target", target, "min_score", svc.Policy().MinScore)
			}

			if err := common.RunDocumentCommand(cmd.Context(), logger, cmdConfig, args, operation, logDetails); err != nil {
				return fmt.Errorf("failed to check export: %w", err)
			}
			return blocked
		},
	}

	addOutputFlags(cmd, &cmdConfig, "output-format")
	cmd.Flags().StringVar(&target, "format", "", "Export target to request: pdf, docx, or share")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		ids := make([]string, 0, len(export.Formats()))
		for _, f := range export.Formats() {
			ids = append(ids, f.ID)
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
