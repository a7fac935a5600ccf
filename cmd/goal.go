package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/observability"
	"github.com/veritas-qa/veritas-core/internal/reporting"
	"github.com/veritas-qa/veritas-core/internal/service"
)

func newGoalCmd() *cobra.Command {
	var targetURL, reportPath, reportFormat string

	cmd := &cobra.Command{
		Use:   "goal <description>",
		Short: "Execute a multi-step goal and print the execution trace.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.Join(args, " ")
			return runGoal(cmd.Context(), appCfg, observability.GetLogger(), cmd.OutOrStdout(),
				goal, targetURL, reportPath, reportFormat)
		},
	}

	cmd.Flags().StringVarP(&targetURL, "url", "u", "", "drive a live browser against this URL instead of static sources")
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "also render the trace as a report to this file")
	cmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "report format: text or json")

	return cmd
}

// goalPayload mirrors the dispatcher's goal envelope body.
type goalPayload struct {
	Goal string `json:"goal"`
}

// runGoal contains the testable logic of the goal command.
func runGoal(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	out io.Writer,
	goal, targetURL, reportPath, reportFormat string,
) error {
	var opts []service.Option
	if targetURL != "" {
		opts = append(opts, service.WithLiveBrowser())
	}

	components, err := service.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	if targetURL != "" {
		if err := components.Session().Navigate(ctx, targetURL); err != nil {
			return err
		}
	}

	dispatcher := service.NewDispatcher(components, logger)
	resp := dispatch(ctx, dispatcher, schemas.CommandGoal, goalPayload{Goal: goal})

	if reportPath != "" && resp.Status == schemas.StatusSuccess {
		if err := writeReport(resp, reportPath, reportFormat); err != nil {
			return err
		}
	}

	return printResponse(out, resp)
}

// writeReport renders the trace from a successful goal response.
func writeReport(resp schemas.CommandResponse, path, format string) error {
	var trace schemas.ExecutionTrace
	if err := json.Unmarshal(resp.Data, &trace); err != nil {
		return fmt.Errorf("failed to decode trace for reporting: %w", err)
	}

	reporter, err := reporting.New(format, path)
	if err != nil {
		return err
	}
	defer reporter.Close()

	return reporter.Write(&trace)
}
