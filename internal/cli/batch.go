package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sepcheck/internal/pipeline"
	"github.com/ppiankov/sepcheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Evaluate many beneficiaries in parallel",
	Long: `Batch reads input paths from a file (one per line, # comments allowed)
and evaluates each on a bounded worker pool. Record .json files are
evaluated directly; other files go through extraction first.

A JSON report is written per input. Inputs whose records are identical to
an earlier input are flagged as duplicates.

Example:
  sepcheck batch inputs.txt
  sepcheck batch inputs.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./sepcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(asOfFlag)
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	inputs, err := worker.ReadInputsFromFile(args[0])
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	logger := newLogger(cfg)
	p := pipeline.NewFromConfig(cfg, logger, nil).WithAsOf(asOf)

	fmt.Fprintf(os.Stderr, "⚙️  Evaluating %d inputs with %d workers...\n\n", len(inputs), cfg.Concurrency.Workers)

	results := worker.NewBatchProcessor(p, cfg.Concurrency.Workers).Process(ctx, inputs)

	renderer := pipeline.NewRenderer(cfg.Output.Verbose)
	out := cmd.OutOrStdout()
	var ok, failed, extractFailed, duplicates int

	for i, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", res.Input, res.Error)
			continue
		}

		jsonPath := filepath.Join(outputDir, fmt.Sprintf("%03d-%s.json", i+1, sanitizeFilename(res.Input)))
		if err := renderer.RenderJSON(res.Report, jsonPath); err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: failed to write JSON: %v\n", res.Input, err)
			continue
		}

		if res.Report.ExtractionError != "" {
			extractFailed++
		} else {
			ok++
		}
		renderer.WriteConsole(out, res.Report)
		if res.DuplicateOf != "" {
			duplicates++
			fmt.Fprintf(out, "⚠ same record as %s\n", res.DuplicateOf)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(os.Stderr, "  Total:       %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Evaluated:   %d\n", ok)
	fmt.Fprintf(os.Stderr, "  Extraction:  %d failed\n", extractFailed)
	fmt.Fprintf(os.Stderr, "  Errors:      %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Duplicates:  %d\n", duplicates)
	fmt.Fprintf(os.Stderr, "  Output:      %s\n", outputDir)

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}

// sanitizeFilename turns an input path into a flat file name stem.
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
	s = strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	).Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." {
		s = "input"
	}
	return s
}
