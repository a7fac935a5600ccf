package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/observability"
)

func newHealCmd() *cobra.Command {
	var imagePath, selector, embeddingPath, domPath string

	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Find a replacement for a broken selector in the current view.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeal(cmd.Context(), appCfg, observability.GetLogger(), cmd.OutOrStdout(),
				imagePath, selector, embeddingPath, domPath)
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to the current screenshot")
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "the selector that stopped matching")
	cmd.Flags().StringVarP(&embeddingPath, "embedding", "e", "", "path to a JSON file holding the element's last known embedding")
	cmd.Flags().StringVarP(&domPath, "dom", "d", "", "optional path to an HTML snapshot for structural evidence")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("selector")
	_ = cmd.MarkFlagRequired("embedding")

	return cmd
}

// runHeal contains the testable logic of the heal command.
func runHeal(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	out io.Writer,
	imagePath, selector, embeddingPath, domPath string,
) error {
	frame, err := encodeImageFile(imagePath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(embeddingPath)
	if err != nil {
		return fmt.Errorf("failed to read embedding file: %w", err)
	}
	var embedding schemas.Embedding
	if err := json.Unmarshal(raw, &embedding); err != nil {
		return fmt.Errorf("embedding file is not a JSON array of numbers: %w", err)
	}

	var dom string
	if domPath != "" {
		snapshot, err := os.ReadFile(domPath)
		if err != nil {
			return fmt.Errorf("failed to read DOM snapshot: %w", err)
		}
		dom = string(snapshot)
	}

	return dispatchAndPrint(ctx, cfg, logger, out, schemas.CommandHeal, schemas.HealRequest{
		FailedSelector:     selector,
		LastKnownEmbedding: embedding,
		ImageBase64:        frame,
		DOMSnapshot:        dom,
	})
}
