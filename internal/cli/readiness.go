package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cvcraft/internal/common"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

func newReadinessCmd() *cobra.Command {
	var cmdConfig common.CommandConfig

	cmd := &cobra.Command{
		Use:   "readiness [resume-file]",
		Short: "Check whether a resume has the sections required for export",
		Long: `Check whether a resume has the sections required for export.

Completeness is the share of five checks that pass: a full name and
headline, a summary of at least 60 characters, an experience entry with
two or more bullets, and at least five skills. Missing sections are
listed in that order.`,
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

			operation := func(ctx context.Context, _ []string, docs []*resume.Document) (types.ReadinessResponse, error) {
				r, err := svc.Readiness(ctx, docs[0])
				if err != nil {
					return types.ReadinessResponse{}, err
				}
				return types.NewReadinessResponse(r), nil
			}

			if err := common.RunDocumentCommand(cmd.Context(), logger, cmdConfig, args, operation, nil); err != nil {
				return fmt.Errorf("failed to check readiness: %w", err)
			}
			return nil
		},
	}

	addOutputFlags(cmd, &cmdConfig, "format")
	return cmd
}
