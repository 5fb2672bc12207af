package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/sepcheck/internal/model"
)

// Evaluator turns one input file into a report.
type Evaluator interface {
	EvaluateFile(ctx context.Context, path string) (*model.Report, error)
}

// evalJob evaluates one input file.
type evalJob struct {
	index     int
	path      string
	evaluator Evaluator
}

func (j *evalJob) Index() int { return j.index }

func (j *evalJob) Execute(ctx context.Context) Result {
	report, err := j.evaluator.EvaluateFile(ctx, j.path)
	return &BatchResult{index: j.index, Input: j.path, Report: report, Error: err}
}

// BatchResult is the outcome for one input. DuplicateOf names an earlier
// input whose record fingerprint is identical.
type BatchResult struct {
	index       int
	Input       string
	Report      *model.Report
	Error       error
	DuplicateOf string
}

func (r *BatchResult) Position() int { return r.index }
func (r *BatchResult) Err() error    { return r.Error }

// BatchProcessor evaluates many inputs concurrently.
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a processor with the given worker count.
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{evaluator: evaluator, concurrency: concurrency}
}

// Process evaluates inputs and returns one result per input, in input order.
// Inputs not started before ctx is cancelled report ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, inputs []string) []*BatchResult {
	out := make([]*BatchResult, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, in := range inputs {
			if !pool.Submit(&evalJob{index: i, path: in, evaluator: b.evaluator}) {
				return
			}
		}
	}()

	for r := range pool.Results() {
		br := r.(*BatchResult)
		out[br.Position()] = br
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("input %s was not processed", inputs[i])
			}
			out[i] = &BatchResult{index: i, Input: inputs[i], Error: err}
		}
	}

	markDuplicates(out)
	return out
}

// markDuplicates flags results whose record fingerprint matches an earlier one.
func markDuplicates(results []*BatchResult) {
	first := make(map[string]string)
	for _, r := range results {
		if r.Report == nil || r.Report.Fingerprint == "" {
			continue
		}
		if earlier, ok := first[r.Report.Fingerprint]; ok {
			r.DuplicateOf = earlier
			continue
		}
		first[r.Report.Fingerprint] = r.Input
	}
}

// ReadInputsFromFile reads input paths, one per line. Blank lines and
// lines starting with # are skipped; repeated paths are kept once.
func ReadInputsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var inputs []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		inputs = append(inputs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input list: %w", err)
	}
	return inputs, nil
}
