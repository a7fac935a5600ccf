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

func newObserveCmd() *cobra.Command {
	var samplePath string

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Score the stability of an environment sample.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObserve(cmd.Context(), appCfg, observability.GetLogger(), cmd.OutOrStdout(), samplePath)
		},
	}

	cmd.Flags().StringVarP(&samplePath, "sample", "s", "", "path to a JSON stability sample")
	_ = cmd.MarkFlagRequired("sample")

	return cmd
}

// runObserve contains the testable logic of the observe command.
func runObserve(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, samplePath string) error {
	raw, err := os.ReadFile(samplePath)
	if err != nil {
		return fmt.Errorf("failed to read sample file: %w", err)
	}

	var sample schemas.StabilitySample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return fmt.Errorf("sample file is not a valid JSON stability sample: %w", err)
	}

	return dispatchAndPrint(ctx, cfg, logger, out, schemas.CommandObserve, sample)
}
