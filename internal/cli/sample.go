package cli

import (
	"github.com/spf13/cobra"

	"cvcraft/internal/common"
	"cvcraft/internal/resume"
)

func newSampleCmd() *cobra.Command {
	var cmdConfig common.CommandConfig
	var empty bool

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the built-in sample resume",
		Long: `Print the built-in sample resume, or an empty starting document with
--empty. The JSON output can be edited and fed back to the other commands.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cmdConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := commandDeps(cmd)
			if err != nil {
				return err
			}
			doc := resume.Sample()
			if empty {
				doc = resume.Empty()
			}
			return common.NewOutputHandler(logger).HandleOutput(doc, cmdConfig)
		},
	}

	addOutputFlags(cmd, &cmdConfig, "format")
	cmd.Flags().BoolVar(&empty, "empty", false, "Print an empty document instead of the sample")
	return cmd
}
