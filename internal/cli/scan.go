package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sepcheck/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan <page>...",
	Short: "Extract a record from screen captures and evaluate it",
	Long: `Scan reads one beneficiary's screens (text, saved HTML, or images via
OCR), extracts the record with the configured LLM, and reports the SEP
findings. Multiple pages are joined in argument order. Use "-" to read
text from stdin.

Example:
  sepcheck scan marx.txt medicaid.txt --provider openai
  sepcheck scan screen1.png screen2.png --json report.json
  pbpaste | sepcheck scan - --provider ollama --model llama3.1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(asOfFlag)
	if err != nil {
		return err
	}

	p := pipeline.NewFromConfig(cfg, newLogger(cfg), nil)

	var text string
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	} else {
		text, err = p.ReadText(cmd.Context(), args...)
		if err != nil {
			return err
		}
	}

	report, err := p.ScanText(cmd.Context(), text, asOf)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	report.Source = sourceName(strings.Join(args, ","))

	return emit(cmd, cfg, report)
}
