package eligibility

import (
	"log/slog"
	"time"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/reference"
	"github.com/ppiankov/sepcheck/internal/window"
)

// evaluator is one row of the category table.
type evaluator struct {
	category model.Category
	run      func(record model.BeneficiaryRecord, asOf time.Time, snapshot *reference.Snapshot) (model.SepFinding, bool)
}

// table is the fixed evaluation order; it matches model.Categories().
var table = []evaluator{
	{model.CategoryICEP, func(r model.BeneficiaryRecord, _ time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluateICEP(r)
	}},
	{model.CategoryIEP2, func(r model.BeneficiaryRecord, asOf time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluateIEP2(r, asOf)
	}},
	{model.CategoryPartBStatus, func(r model.BeneficiaryRecord, _ time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluatePartBStatus(r)
	}},
	{model.CategoryLIS, func(r model.BeneficiaryRecord, asOf time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluateLIS(r, asOf)
	}},
	{model.CategoryDST, EvaluateDST},
	{model.CategoryMCD, func(r model.BeneficiaryRecord, _ time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluateMCD(r)
	}},
	{model.CategoryDIF, func(r model.BeneficiaryRecord, _ time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluateDIF(r)
	}},
	{model.CategoryLEC, func(r model.BeneficiaryRecord, _ time.Time, _ *reference.Snapshot) (model.SepFinding, bool) {
		return EvaluateLEC(r)
	}},
}

// Engine runs the filter and every category evaluator against one record.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	snapshot *reference.Snapshot
	logger   *slog.Logger
}

// NewEngine creates an engine bound to a reference snapshot. A nil snapshot
// behaves as an empty dataset.
func NewEngine(snapshot *reference.Snapshot, logger *slog.Logger) *Engine {
	if snapshot == nil {
		snapshot = reference.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{snapshot: snapshot, logger: logger}
}

// Snapshot returns the reference snapshot the engine evaluates against.
func (e *Engine) Snapshot() *reference.Snapshot {
	return e.snapshot
}

// Evaluate applies the disqualification filter, then each category in
// table order, and aggregates the outcome. A zero asOf means today.
func (e *Engine) Evaluate(record model.BeneficiaryRecord, asOf time.Time) model.EvaluationResult {
	if asOf.IsZero() {
		asOf = window.Today()
	} else {
		asOf = window.Civil(asOf)
	}

	result := model.EvaluationResult{
		AsOf:       asOf,
		Findings:   []model.SepFinding{},
		Qualifying: []model.Category{},
	}

	if block := Filter(record); block.Blocked {
		result.Blocked = true
		result.Block = &block
		e.logger.Debug("record blocked", "reason_code", block.ReasonCode)
		return result
	}

	for _, ev := range table {
		finding, ok := ev.run(record, asOf, e.snapshot)
		if !ok {
			continue
		}
		result.Findings = append(result.Findings, finding)
		if finding.Qualifies {
			result.Qualifying = append(result.Qualifying, finding.Category)
		}
	}

	switch {
	case len(result.Qualifying) == 0:
		result.FallbackReason = model.FallbackNoSEP
	case len(result.Qualifying) == 1 && result.Qualifying[0] == model.CategoryDST:
		result.FallbackReason = model.FallbackDSTOnly
	}
	if result.FallbackReason != model.FallbackNone {
		result.NeedsFallbackGuidance = true
		result.Guidance = FallbackGuidance()
	}

	e.logger.Debug("record evaluated",
		"as_of", asOf.Format(model.DatasetDateLayout),
		"findings", len(result.Findings),
		"qualifying", len(result.Qualifying),
		"fallback", string(result.FallbackReason),
	)
	return result
}
