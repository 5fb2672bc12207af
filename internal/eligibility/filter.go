// Package eligibility decides which Special Enrollment Periods a beneficiary
// record supports. Everything here is a pure function of the record, the
// evaluation date and an injected reference snapshot.
package eligibility

import (
	"strings"

	"github.com/ppiankov/sepcheck/internal/model"
)

// Block reason codes.
const (
	BlockEmployerGroup   = "employer_group_no_part_b"
	BlockInvalidContract = "invalid_contract_code"
	BlockPACE            = "pace_plan"
)

// Filter applies the disqualification rules in order; the first match wins.
// A blocked record is an expected outcome, not an error.
func Filter(record model.BeneficiaryRecord) model.BlockResult {
	contract := strings.TrimSpace(record.ContractCode)

	switch {
	case strings.HasPrefix(contract, "8") && strings.TrimSpace(record.PartBStatus) == "":
		return blocked(BlockEmployerGroup, "employer group plan, no Part B end date.")
	case strings.HasPrefix(strings.ToUpper(contract), "X"):
		return blocked(BlockInvalidContract, "invalid contract code.")
	case strings.Contains(strings.ToUpper(record.PlanType), "PACE"):
		return blocked(BlockPACE, "PACE plan.")
	}
	return model.BlockResult{}
}

func blocked(code, reason string) model.BlockResult {
	return model.BlockResult{Blocked: true, Reason: reason, ReasonCode: code}
}
