package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/reference"
	"github.com/ppiankov/sepcheck/internal/window"
)

const (
	iep2Lead     = 90 // days before the turning-65 month that the window is open
	iep2Grace    = 90 // days after it during which the window is reported as just passed
	levelRecency = 90
)

// Reason codes carried on findings.
const (
	ReasonDatesEqual      = "dates_equal"
	ReasonPartBAfterA     = "part_b_after_part_a"
	ReasonPartBBeforeA    = "part_b_before_part_a"
	ReasonMissingDates    = "missing_dates"
	ReasonWindowOpen      = "window_open"
	ReasonWindowPassed    = "window_passed"
	ReasonOutsideWindow   = "outside_window"
	ReasonMissingDOB      = "missing_date_of_birth"
	ReasonNotEntitled     = "part_b_not_entitled"
	ReasonNoData          = "no_data"
	ReasonUnparsableDate  = "unparsable_date"
	ReasonRecentChange    = "recent_change"
	ReasonDisasterOngoing = "declaration_ongoing"
	ReasonDisasterActive  = "declaration_active"
	ReasonNoDeclaration   = "no_declaration"
	ReasonMissingState    = "missing_state"
	ReasonInsufficient    = "insufficient_history"
	ReasonLevelChanged    = "level_changed"
	ReasonLevelUnchanged  = "level_unchanged"
	ReasonDefaultFollow   = "default_enrollment"
	ReasonNoMatch         = "no_matching_election"
	ReasonCoverageLost    = "employer_or_cobra_election"
	ReasonEmployerPlanYr  = "employer_plan_year"
)

const monthYear = "January 2006"

// EvaluateICEP compares Part A and Part B entitlement onset.
func EvaluateICEP(record model.BeneficiaryRecord) (model.SepFinding, bool) {
	a, b := record.PartADate, record.PartBDate
	if !a.Valid() || !b.Valid() {
		return model.NewFinding(model.CategoryICEP, model.StatusUndetermined, ReasonMissingDates,
			"Failed to determine ICEP/IEP: Part A or Part B date missing or unreadable."), true
	}

	switch {
	case a.Equal(b):
		return model.NewFinding(model.CategoryICEP, model.StatusQualifies, ReasonDatesEqual,
			fmt.Sprintf("ICEP/IEP likely (Part A and B start: %s)", a)), true
	case b.After(a):
		return model.NewFinding(model.CategoryICEP, model.StatusMayQualify, ReasonPartBAfterA,
			fmt.Sprintf("Part B after Part A, may qualify for ICEP (A: %s, B: %s)", a, b)), true
	default:
		return model.NewFinding(model.CategoryICEP, model.StatusNotQualified, ReasonPartBBeforeA,
			fmt.Sprintf("Not in ICEP/IEP: Part B started before Part A (A: %s, B: %s)", a, b)), true
	}
}

// EvaluateIEP2 places the turning-65 month relative to asOf.
func EvaluateIEP2(record model.BeneficiaryRecord, asOf time.Time) (model.SepFinding, bool) {
	if !record.DateOfBirth.Valid() {
		return model.NewFinding(model.CategoryIEP2, model.StatusUndetermined, ReasonMissingDOB,
			"IEP2 check failed: date of birth missing or unreadable."), true
	}

	turning := window.TurningSixtyFive(record.DateOfBirth.Time())
	label := turning.Format(monthYear)
	ahead := window.DaysUntil(asOf, turning)

	switch {
	case ahead >= 0 && ahead <= iep2Lead:
		return model.NewFinding(model.CategoryIEP2, model.StatusQualifies, ReasonWindowOpen,
			fmt.Sprintf("IEP2 window open (turning 65: %s)", label)), true
	case ahead < 0 && ahead >= -iep2Grace:
		return model.NewFinding(model.CategoryIEP2, model.StatusWindowPassed, ReasonWindowPassed,
			fmt.Sprintf("IEP2 just passed (turned 65: %s)", label)), true
	default:
		return model.NewFinding(model.CategoryIEP2, model.StatusNotQualified, ReasonOutsideWindow,
			fmt.Sprintf("Not in IEP2 window (turns 65: %s)", label)), true
	}
}

// EvaluatePartBStatus warns when Part B is not currently entitled. It reports
// not applicable when the status reads as currently entitled.
func EvaluatePartBStatus(record model.BeneficiaryRecord) (model.SepFinding, bool) {
	status := strings.TrimSpace(record.PartBStatus)
	if status != "" && strings.Contains(strings.ToLower(status), "currently entitled") {
		return model.SepFinding{}, false
	}
	return model.NewFinding(model.CategoryPartBStatus, model.StatusAdvisory, ReasonNotEntitled,
		"Part B entitlement status is not active, review before proceeding."), true
}

// EvaluateLIS checks whether the most recent subsidy level started within
// the last 90 days. Earlier entries are ignored.
func EvaluateLIS(record model.BeneficiaryRecord, asOf time.Time) (model.SepFinding, bool) {
	levels := record.RecentLISLevels
	if len(levels) == 0 {
		return model.NewFinding(model.CategoryLIS, model.StatusNotQualified, ReasonNoData,
			"No LIS data available."), true
	}

	last := levels[len(levels)-1]
	if !last.StartDate.Valid() {
		return model.NewFinding(model.CategoryLIS, model.StatusUndetermined, ReasonUnparsableDate,
			fmt.Sprintf("LIS start date could not be parsed (%q).", last.StartDate.Raw)), true
	}

	if window.Within(asOf, last.StartDate.Time(), 0, levelRecency) {
		return model.NewFinding(model.CategoryLIS, model.StatusQualifies, ReasonRecentChange,
			fmt.Sprintf("LIS SEP: level %s started %s.", levelText(last.Level), last.StartDate)), true
	}
	return model.NewFinding(model.CategoryLIS, model.StatusNotQualified, ReasonOutsideWindow,
		fmt.Sprintf("No LIS change in the last 3 months (latest level %s started %s).", levelText(last.Level), last.StartDate)), true
}

// EvaluateDST looks up an active disaster declaration for the record's
// state and county in the snapshot.
func EvaluateDST(record model.BeneficiaryRecord, asOf time.Time, snapshot *reference.Snapshot) (model.SepFinding, bool) {
	state := strings.ToUpper(strings.TrimSpace(record.State))
	county := strings.TrimSpace(record.County)
	if state == "" {
		return model.NewFinding(model.CategoryDST, model.StatusNotQualified, ReasonMissingState,
			"No DST SEP: state unknown."), true
	}

	decl, ok := snapshot.Match(state, county, asOf)
	if !ok {
		return model.NewFinding(model.CategoryDST, model.StatusNotQualified, ReasonNoDeclaration,
			fmt.Sprintf("No active disaster declaration for %s.", place(county, state))), true
	}

	reason := ""
	if decl.Reason != "" {
		reason = " (" + decl.Reason + ")"
	}
	if decl.Ongoing() {
		return model.NewFinding(model.CategoryDST, model.StatusQualifies, ReasonDisasterOngoing,
			fmt.Sprintf("DST SEP likely for %s%s, ends TBD.", place(county, state), reason)), true
	}
	return model.NewFinding(model.CategoryDST, model.StatusQualifies, ReasonDisasterActive,
		fmt.Sprintf("DST SEP active for %s%s (ends %s).", place(county, state), reason, decl.EndLabel())), true
}

// EvaluateMCD compares the two most recent Medicaid levels.
func EvaluateMCD(record model.BeneficiaryRecord) (model.SepFinding, bool) {
	levels := record.RecentMedicaidLevels
	if len(levels) < 2 {
		return model.NewFinding(model.CategoryMCD, model.StatusNotQualified, ReasonInsufficient,
			"No MCD SEP: fewer than two Medicaid levels on record."), true
	}

	prev := strings.TrimSpace(string(levels[len(levels)-2].Level))
	curr := strings.TrimSpace(string(levels[len(levels)-1].Level))
	if prev != curr {
		return model.NewFinding(model.CategoryMCD, model.StatusQualifies, ReasonLevelChanged,
			fmt.Sprintf("MCD SEP: Medicaid level changed from %s to %s.", levelText(model.Level(prev)), levelText(model.Level(curr)))), true
	}
	return model.NewFinding(model.CategoryMCD, model.StatusNotQualified, ReasonLevelUnchanged,
		fmt.Sprintf("No MCD SEP: Medicaid level unchanged (%s).", levelText(model.Level(curr)))), true
}

// EvaluateDIF looks for an X0001 election and a PDP election anywhere in
// the history. They need not be the same entry.
func EvaluateDIF(record model.BeneficiaryRecord) (model.SepFinding, bool) {
	if anyContains(record.RecentElections, "x0001") && anyContains(record.RecentElections, "pdp") {
		return model.NewFinding(model.CategoryDIF, model.StatusQualifies, ReasonDefaultFollow,
			"DIF SEP: Auto-enrolled PDP after X0001 election."), true
	}
	return model.NewFinding(model.CategoryDIF, model.StatusNotQualified, ReasonNoMatch,
		"No DIF SEP: no X0001 election followed by PDP enrollment."), true
}

// EvaluateLEC qualifies on an employer/COBRA election or on an employer
// plan (contract 8xxxx) whose plan type carries a plan-year marker.
func EvaluateLEC(record model.BeneficiaryRecord) (model.SepFinding, bool) {
	if anyContains(record.RecentElections, "employer") || anyContains(record.RecentElections, "cobra") {
		return model.NewFinding(model.CategoryLEC, model.StatusQualifies, ReasonCoverageLost,
			"LEC SEP: Lost employer or COBRA coverage."), true
	}
	if strings.HasPrefix(strings.TrimSpace(record.ContractCode), "8") && strings.Contains(record.PlanType, "202") {
		return model.NewFinding(model.CategoryLEC, model.StatusQualifies, ReasonEmployerPlanYr,
			fmt.Sprintf("LEC SEP: employer group plan %s (%s).", strings.TrimSpace(record.ContractCode), strings.TrimSpace(record.PlanType))), true
	}
	return model.NewFinding(model.CategoryLEC, model.StatusNotQualified, ReasonNoMatch,
		"No LEC SEP: no employer or COBRA coverage loss found."), true
}

func anyContains(entries []string, needle string) bool {
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e), needle) {
			return true
		}
	}
	return false
}

func levelText(l model.Level) string {
	if s := strings.TrimSpace(string(l)); s != "" {
		return s
	}
	return "unknown"
}

func place(county, state string) string {
	if county == "" {
		return state
	}
	return county + ", " + state
}
