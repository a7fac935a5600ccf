package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// encodeImageFile reads an image file and returns it base64 encoded, the
// form every command payload carries frames in.
func encodeImageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// dispatchAndPrint wires components, runs one command through the
// dispatcher, and writes the response envelope as indented JSON. An error
// envelope also becomes a non-zero exit through the returned error.
func dispatchAndPrint(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	out io.Writer,
	tag schemas.CommandTag,
	payload interface{},
	opts ...service.Option,
) error {
	components, err := service.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	dispatcher := service.NewDispatcher(components, logger)
	return printResponse(out, dispatch(ctx, dispatcher, tag, payload))
}

func dispatch(ctx context.Context, d *service.Dispatcher, tag schemas.CommandTag, payload interface{}) schemas.CommandResponse {
	raw, err := json.Marshal(payload)
	if err != nil {
		return schemas.CommandResponse{
			Status: schemas.StatusError,
			Error:  fmt.Sprintf("failed to encode payload: %v", err),
		}
	}
	return d.Dispatch(ctx, schemas.CommandRequest{Command: tag, Payload: raw})
}

func printResponse(out io.Writer, resp schemas.CommandResponse) error {
	encoded, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Fprintln(out, string(encoded))

	if resp.Status == schemas.StatusError {
		return fmt.Errorf("%s: %s", resp.Code, resp.Error)
	}
	return nil
}
