// Package reporting renders execution traces for humans and machines. The
// dispatcher returns raw envelopes; this is the layer that turns a finished
// goal run into something reviewable.
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes one execution trace to an output.
type Reporter interface {
	// Write renders a single trace.
	Write(trace *schemas.ExecutionTrace) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format. An empty or "stdout" path
// writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return &jsonReporter{writer: writer}, nil
	case "text":
		return &textReporter{writer: writer}, nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// jsonReporter emits the trace verbatim as indented JSON.
type jsonReporter struct {
	writer io.WriteCloser
}

func (r *jsonReporter) Write(trace *schemas.ExecutionTrace) error {
	encoded, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	if _, err := r.writer.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.writer.Close()
}

// textReporter renders a step table plus the audit trail.
type textReporter struct {
	writer io.WriteCloser
}

func (r *textReporter) Write(trace *schemas.ExecutionTrace) error {
	var b strings.Builder

	outcome := "FAILED"
	if trace.Success {
		outcome = "SUCCEEDED"
	}
	fmt.Fprintf(&b, "Goal %s %s\n", trace.GoalID, outcome)
	fmt.Fprintf(&b, "  goal:     %s\n", trace.Goal)
	fmt.Fprintf(&b, "  target:   %s\n", trace.TargetState)
	fmt.Fprintf(&b, "  started:  %s\n", trace.StartedAt.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, "  duration: %s\n\n", trace.TotalDuration)

	tw := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tACTION\tTARGET\tDURATION\tOBSERVATION")
	for i, step := range trace.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, step.Status, step.Action, step.Target, step.Duration, step.Observation)
	}
	tw.Flush()

	if len(trace.AuditTrail) > 0 {
		b.WriteString("\nAudit trail:\n")
		for _, entry := range trace.AuditTrail {
			fmt.Fprintf(&b, "  - %s\n", entry)
		}
	}

	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}

func (r *textReporter) Close() error {
	return r.writer.Close()
}
