package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/pipeline"
)

var (
	outJSON string
	outMD   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <record.json>",
	Short: "Evaluate an already extracted beneficiary record",
	Long: `Evaluate reads a beneficiary record in the extraction JSON shape and
reports the SEP findings. No LLM is involved. Use "-" to read stdin.

Example:
  sepcheck evaluate jane.json
  sepcheck evaluate jane.json --as-of 2024-02-01 --json report.json --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	evaluateCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(asOfFlag)
	if err != nil {
		return err
	}

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}

	p := pipeline.NewFromConfig(cfg, newLogger(cfg), nil)
	report, err := p.EvaluatePayload(cmd.Context(), data, asOf)
	if err != nil {
		return err
	}
	report.Source = sourceName(args[0])

	return emit(cmd, cfg, report)
}

// emit prints the console summary and writes any requested files.
func emit(cmd *cobra.Command, cfg *model.Config, report *model.Report) error {
	renderer := pipeline.NewRenderer(cfg.Output.Verbose)
	renderer.WriteConsole(cmd.OutOrStdout(), report)

	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
		}
	}

	if report.ExtractionError != "" {
		return fmt.Errorf("extraction failed: %s", report.ExtractionError)
	}
	return nil
}

func sourceName(arg string) string {
	if arg == "-" {
		return "stdin"
	}
	return arg
}
