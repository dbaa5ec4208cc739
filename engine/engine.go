// Package engine defines the boundary to the external document converter.
// The orchestration layer never looks inside a conversion: it hands the
// engine an input path and an output path and observes success or failure.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// Engine performs one document conversion. Implementations must be safe
// for concurrent use.
type Engine interface {
	Convert(ctx context.Context, inputPath, outputPath, lang string, dpi int) error
	Ready(ctx context.Context) error
}

// CommandEngine shells out to an external converter binary.
type CommandEngine struct {
	bin    string
	logger *zap.Logger
}

func NewCommandEngine(bin string, logger *zap.Logger) *CommandEngine {
	return &CommandEngine{bin: bin, logger: logger}
}

func (e *CommandEngine) Convert(ctx context.Context, inputPath, outputPath, lang string, dpi int) error {
	args := []string{
		inputPath,
		outputPath,
		"--lang", lang,
		"--dpi", strconv.Itoa(dpi),
	}

	e.logger.Info("Invoking conversion engine",
		zap.String("bin", e.bin),
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("lang", lang),
		zap.Int("dpi", dpi),
	)

	cmd := exec.CommandContext(ctx, e.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("conversion engine: %s: %w", stderr.String(), err)
		}
		return fmt.Errorf("conversion engine: %w", err)
	}
	return nil
}

// Ready probes the converter binary. A failed probe means conversions will
// almost certainly fail, but callers may still choose to accept work.
func (e *CommandEngine) Ready(ctx context.Context) error {
	if err := exec.CommandContext(ctx, e.bin, "--version").Run(); err != nil {
		return fmt.Errorf("engine probe %q: %w", e.bin, err)
	}
	return nil
}
