package model

import "time"

// Report is the rendered unit of work: one beneficiary, one evaluation.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source,omitempty"`      // input file or "stdin"
	Fingerprint string    `json:"fingerprint,omitempty"` // canonical digest of the record

	Record *BeneficiaryRecord `json:"record,omitempty"`
	Plan   string             `json:"plan,omitempty"` // H<contract>-<pbp>
	Issues []Issue            `json:"issues,omitempty"`

	Result *EvaluationResult `json:"result,omitempty"`

	// ExtractionError is the collaborator's failure message, verbatim.
	// When set, no evaluation was performed.
	ExtractionError string `json:"extraction_error,omitempty"`

	Extraction *ExtractionMeta `json:"extraction,omitempty"`
}

// Evaluated reports whether the report carries an evaluation result.
func (r *Report) Evaluated() bool {
	return r != nil && r.Result != nil
}

// ExtractionMeta records how the record was produced from raw text.
type ExtractionMeta struct {
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Cached     bool   `json:"cached"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// Issue is a data-quality observation about a record. Issues never change
// the evaluation outcome.
type Issue struct {
	Field    string        `json:"field"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// IssueSeverity indicates how much attention an issue needs.
type IssueSeverity string

const (
	SeverityInfo    IssueSeverity = "info"
	SeverityWarning IssueSeverity = "warning"
)

// ExtractionError is the explicit failure signal from the extraction
// collaborator. The message is surfaced upstream unchanged.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string {
	return e.Message
}
