package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// BeneficiaryRecord is the normalized input to an eligibility evaluation.
// It is treated as immutable for the duration of an evaluation.
type BeneficiaryRecord struct {
	FullName    string `json:"full_name"`
	DateOfBirth Date   `json:"date_of_birth"`
	MBI         string `json:"mbi"` // Medicare Beneficiary Identifier

	ContractCode string `json:"contract_code"`
	PBP          string `json:"pbp"` // Plan Benefit Package, paired with ContractCode
	PlanType     string `json:"plan_type"`

	PartADate   Date   `json:"part_a_date"`
	PartBDate   Date   `json:"part_b_date"`
	PartBStatus string `json:"part_b_status"`

	County string `json:"county"`
	State  string `json:"state"`

	RecentElections      []string     `json:"recent_elections"`       // chronological, most recent last
	RecentLISLevels      []LevelEntry `json:"recent_lis_levels"`      // chronological
	RecentMedicaidLevels []LevelEntry `json:"recent_medicaid_levels"` // chronological
}

// LevelEntry is one subsidy or Medicaid level with the date it started.
type LevelEntry struct {
	Level     Level `json:"level"`
	StartDate Date  `json:"start_date"`
}

// Level is a subsidy or Medicaid level. Extraction output carries it either as
// a string ("100%") or a bare number (3), so both decode into the same text.
type Level string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Level(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*l = Level(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*l = Level(strconv.FormatBool(b))
		return nil
	}
	*l = ""
	return nil
}

// PlanDisplay renders the current plan as H<contract>-<pbp>, or "" when either
// part is missing.
func (r BeneficiaryRecord) PlanDisplay() string {
	contract := strings.TrimSpace(r.ContractCode)
	pbp := strings.TrimSpace(r.PBP)
	if contract == "" || pbp == "" {
		return ""
	}
	return "H" + contract + "-" + pbp
}

// NormalizeMBI corrects the one OCR confusion documented for identifiers:
// the letter O read in place of the digit 0.
func NormalizeMBI(mbi string) string {
	return strings.ReplaceAll(strings.TrimSpace(mbi), "O", "0")
}
