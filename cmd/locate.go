package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/observability"
)

func newLocateCmd() *cobra.Command {
	var imagePath, intent string

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Resolve a natural-language intent to an element in a screenshot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd.Context(), appCfg, observability.GetLogger(), cmd.OutOrStdout(), imagePath, intent)
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to the screenshot (PNG or JPEG)")
	cmd.Flags().StringVarP(&intent, "intent", "t", "", "what to find, e.g. \"Find the 'Confirm Purchase' button\"")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("intent")

	return cmd
}

// runLocate contains the testable logic of the locate command.
func runLocate(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, imagePath, intent string) error {
	frame, err := encodeImageFile(imagePath)
	if err != nil {
		return err
	}

	return dispatchAndPrint(ctx, cfg, logger, out, schemas.CommandLocate, schemas.LocateRequest{
		ImageBase64: frame,
		Intent:      intent,
	})
}
