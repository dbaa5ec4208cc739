// Package dispatcher runs offline batch conversions across a fixed pool of
// workers. Items fail independently; the run fails only when nothing
// resolves or nothing succeeds.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"docconverter/engine"
)

var ErrNoInputs = errors.New("no PDF files found")

type Options struct {
	Input     string
	OutputDir string
	Lang      string
	DPI       int
	Workers   int
}

type Item struct {
	SourcePath string
	OutputPath string
}

type Result struct {
	Item    Item
	Err     error
	Elapsed time.Duration
}

type Summary struct {
	Resolved  int
	Succeeded int
	Failed    int
	Elapsed   time.Duration

	// AvgItemElapsed averages successful items only.
	AvgItemElapsed time.Duration
}

// OK reports overall run success: at least one item converted.
func (s Summary) OK() bool {
	return s.Succeeded > 0
}

type Dispatcher struct {
	engine engine.Engine
	logger *zap.Logger
}

func New(eng engine.Engine, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{engine: eng, logger: logger}
}

// Run resolves the input spec, converts every item on a bounded worker
// pool, and aggregates the outcome. Results are collected in completion
// order; item order carries no meaning.
func (d *Dispatcher) Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()

	items, err := d.resolve(opts)
	if err != nil {
		return Summary{Elapsed: time.Since(start)}, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers()
	}

	d.logger.Info("Starting batch conversion",
		zap.Int("files", len(items)),
		zap.Int("workers", workers),
	)

	jobs := make(chan Item)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- d.convertOne(ctx, item, opts)
			}
		}()
	}

	go func() {
		for _, item := range items {
			jobs <- item
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	summary := Summary{Resolved: len(items)}
	var successElapsed time.Duration
	for result := range results {
		if result.Err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		successElapsed += result.Elapsed
	}

	summary.Elapsed = time.Since(start)
	if summary.Succeeded > 0 {
		summary.AvgItemElapsed = successElapsed / time.Duration(summary.Succeeded)
	}

	d.logger.Info("Batch conversion complete",
		zap.Int("successful", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Duration("avg_item_elapsed", summary.AvgItemElapsed),
	)

	return summary, nil
}

// convertOne handles a single item; engine failures are recorded, never
// propagated, so one bad document cannot abort the run.
func (d *Dispatcher) convertOne(ctx context.Context, item Item, opts Options) Result {
	d.logger.Info("Converting",
		zap.String("source", item.SourcePath),
		zap.String("output", item.OutputPath),
	)

	start := time.Now()
	err := d.engine.Convert(ctx, item.SourcePath, item.OutputPath, opts.Lang, opts.DPI)
	elapsed := time.Since(start)

	if err != nil {
		d.logger.Error("Conversion failed",
			zap.String("source", item.SourcePath),
			zap.Error(err),
		)
		return Result{Item: item, Err: err, Elapsed: elapsed}
	}

	d.logger.Info("Converted",
		zap.String("source", item.SourcePath),
		zap.Duration("elapsed", elapsed),
	)
	return Result{Item: item, Elapsed: elapsed}
}

// resolve expands the input spec: exact file, else recursive directory
// scan, else glob pattern. Empty resolution fails the whole run.
func (d *Dispatcher) resolve(opts Options) ([]Item, error) {
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	sources, err := resolveSources(opts.Input)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w at %s", ErrNoInputs, opts.Input)
	}

	items := make([]Item, 0, len(sources))
	for _, source := range sources {
		items = append(items, Item{
			SourcePath: source,
			OutputPath: outputPath(source, opts.OutputDir),
		})
	}
	return items, nil
}

func resolveSources(input string) ([]string, error) {
	info, err := os.Stat(input)
	switch {
	case err == nil && info.IsDir():
		var sources []string
		walkErr := filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && isPDF(path) {
				sources = append(sources, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("scan directory: %w", walkErr)
		}
		return sources, nil

	case err == nil && isPDF(input):
		return []string{input}, nil

	default:
		matches, globErr := filepath.Glob(input)
		if globErr != nil {
			return nil, fmt.Errorf("expand pattern: %w", globErr)
		}
		var sources []string
		for _, match := range matches {
			if isPDF(match) {
				sources = append(sources, match)
			}
		}
		return sources, nil
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// outputPath co-locates output with the source unless an output directory
// was given.
func outputPath(source, outputDir string) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + ".docx"
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(source), name)
}

// defaultWorkers leaves one processing unit free for the host.
func defaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}
