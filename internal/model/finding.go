package model

import "time"

// Category identifies an SEP kind (or the Part B advisory). Declaration order
// is the fixed evaluation order.
type Category string

const (
	CategoryICEP        Category = "icep_iep"      // Initial Coverage Election / Initial Enrollment Period
	CategoryIEP2        Category = "iep2"          // turning-65 window
	CategoryPartBStatus Category = "part_b_status" // advisory, never qualifies
	CategoryLIS         Category = "lis_nls"       // Low-Income Subsidy level change
	CategoryDST         Category = "dst"           // disaster / emergency declaration
	CategoryMCD         Category = "mcd"           // Medicaid level change
	CategoryDIF         Category = "dif"           // default enrollment following
	CategoryLEC         Category = "lec"           // loss of employer coverage
)

// Categories lists every category in evaluation order.
func Categories() []Category {
	return []Category{
		CategoryICEP,
		CategoryIEP2,
		CategoryPartBStatus,
		CategoryLIS,
		CategoryDST,
		CategoryMCD,
		CategoryDIF,
		CategoryLEC,
	}
}

// Label returns the short human label used in rendered output.
func (c Category) Label() string {
	switch c {
	case CategoryICEP:
		return "ICEP/IEP"
	case CategoryIEP2:
		return "IEP2"
	case CategoryPartBStatus:
		return "Part B status"
	case CategoryLIS:
		return "LIS (NLS)"
	case CategoryDST:
		return "DST"
	case CategoryMCD:
		return "MCD"
	case CategoryDIF:
		return "DIF"
	case CategoryLEC:
		return "LEC"
	default:
		return string(c)
	}
}

// Status is the outcome of a single category check.
type Status string

const (
	StatusQualifies    Status = "qualifies"
	StatusMayQualify   Status = "may_qualify"   // counted as qualifying, softer wording
	StatusNotQualified Status = "not_qualified"
	StatusWindowPassed Status = "window_passed" // IEP2 closed within the last 90 days
	StatusUndetermined Status = "undetermined"  // required dates absent or malformed
	StatusAdvisory     Status = "advisory"      // informational warning
)

// Counts reports whether the status counts toward the qualifying set.
func (s Status) Counts() bool {
	return s == StatusQualifies || s == StatusMayQualify
}

// SepFinding is one category outcome. Findings are built fresh per evaluation
// and never mutated afterwards.
type SepFinding struct {
	Category   Category `json:"category"`
	Status     Status   `json:"status"`
	Qualifies  bool     `json:"qualifies"`
	Message    string   `json:"message"`
	ReasonCode string   `json:"reason_code,omitempty"`
}

// NewFinding builds a finding and derives Qualifies from the status.
func NewFinding(category Category, status Status, reasonCode, message string) SepFinding {
	return SepFinding{
		Category:   category,
		Status:     status,
		Qualifies:  status.Counts(),
		Message:    message,
		ReasonCode: reasonCode,
	}
}

// BlockResult is the outcome of the disqualification filter.
type BlockResult struct {
	Blocked    bool   `json:"blocked"`
	Reason     string `json:"reason,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
}

// FallbackReason explains why fallback guidance was attached.
type FallbackReason string

const (
	FallbackNone    FallbackReason = ""
	FallbackNoSEP   FallbackReason = "no_sep"
	FallbackDSTOnly FallbackReason = "dst_only"
)

// GuidancePrompt is one follow-up question for the agent when no strong SEP was found.
type GuidancePrompt struct {
	Code   string `json:"code"`
	Prompt string `json:"prompt"`
}

// EvaluationResult is the complete output of one evaluation.
type EvaluationResult struct {
	AsOf                  time.Time        `json:"as_of"`
	Blocked               bool             `json:"blocked"`
	Block                 *BlockResult     `json:"block,omitempty"`
	Findings              []SepFinding     `json:"findings"`
	Qualifying            []Category       `json:"qualifying"`
	NeedsFallbackGuidance bool             `json:"needs_fallback_guidance"`
	FallbackReason        FallbackReason   `json:"fallback_reason,omitempty"`
	Guidance              []GuidancePrompt `json:"guidance,omitempty"`
}

// Finding returns the finding for a category, if one was produced.
func (r EvaluationResult) Finding(c Category) (SepFinding, bool) {
	for _, f := range r.Findings {
		if f.Category == c {
			return f, true
		}
	}
	return SepFinding{}, false
}

// QualifyingFindings returns the findings that count toward the qualifying set.
func (r EvaluationResult) QualifyingFindings() []SepFinding {
	var out []SepFinding
	for _, f := range r.Findings {
		if f.Qualifies {
			out = append(out, f)
		}
	}
	return out
}
