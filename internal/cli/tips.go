package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"cvcraft/internal/ats"
	"cvcraft/internal/common"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

func newTipsCmd() *cobra.Command {
	var cmdConfig common.CommandConfig
	var section string

	cmd := &cobra.Command{
		Use:   "tips [resume-file]",
		Short: "Suggest section-level improvements",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if section != "" && !slices.Contains(ats.TipSections(), section) {
				return fmt.Errorf("unknown section '%s'. Supported sections: %s", section, strings.Join(ats.TipSections(), ", "))
			}
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

			operation := func(ctx context.Context, _ []string, docs []*resume.Document) (types.TipsResponse, error) {
				tips, err := svc.Tips(ctx, docs[0], section)
				if err != nil {
					return types.TipsResponse{}, err
				}
				return types.TipsResponse{Tips: tips}, nil
			}

			if err := common.RunDocumentCommand(cmd.Context(), logger, cmdConfig, args, operation, nil); err != nil {
				return fmt.Errorf("failed to build tips: %w", err)
			}
			return nil
		},
	}

	addOutputFlags(cmd, &cmdConfig, "format")
	cmd.Flags().StringVarP(&section, "section", "s", "", "Only show tips for one section")
	_ = cmd.RegisterFlagCompletionFunc("section", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return ats.TipSections(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
