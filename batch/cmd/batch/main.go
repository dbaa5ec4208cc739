package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docconverter/batch/dispatcher"
	"docconverter/engine"
)

func main() {
	godotenv.Load()

	var (
		outputDir string
		lang      string
		dpi       int
		workers   int
		engineBin string
	)

	cmd := &cobra.Command{
		Use:   "batch <input>",
		Short: "Batch convert PDF files to Word documents",
		Long: `Converts PDF files to Word documents using the configured conversion
engine. The input may be a single PDF, a directory (scanned recursively),
or a glob pattern.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewProduction()
			defer logger.Sync()

			eng := engine.NewCommandEngine(engineBin, logger)

			probeCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			if err := eng.Ready(probeCtx); err != nil {
				logger.Warn("Conversion engine is not ready, conversions may fail; "+
					"install the converter binary or set ENGINE_BIN",
					zap.Error(err),
				)
			}
			cancel()

			d := dispatcher.New(eng, logger)
			summary, err := d.Run(cmd.Context(), dispatcher.Options{
				Input:     args[0],
				OutputDir: outputDir,
				Lang:      lang,
				DPI:       dpi,
				Workers:   workers,
			})
			if err != nil {
				return err
			}
			if !summary.OK() {
				return fmt.Errorf("no files converted successfully (%d failed)", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory for Word documents")
	cmd.Flags().StringVarP(&lang, "lang", "l", "eng", "OCR language")
	cmd.Flags().IntVarP(&dpi, "dpi", "d", 300, "DPI for image conversion")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "maximum number of parallel workers (0 = CPUs-1)")
	cmd.Flags().StringVar(&engineBin, "engine-bin", envOr("ENGINE_BIN", "pdf2docx"), "conversion engine binary")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
