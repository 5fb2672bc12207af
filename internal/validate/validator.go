// Package validate reports data-quality issues on a normalized beneficiary
// record. Issues are informational: they are rendered next to the
// evaluation but never change it.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/sepcheck/internal/model"
)

// CMS MBI layout: 11 characters, position 1 is 1-9, letters exclude S L O I B Z.
var (
	mbiPattern      = regexp.MustCompile(`^[1-9][AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y0-9][0-9][AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y0-9][0-9][AC-HJKMNP-RT-Y]{2}[0-9]{2}$`)
	contractPattern = regexp.MustCompile(`^[A-Z]?[0-9]{4,5}$`)
	pbpPattern      = regexp.MustCompile(`^[0-9]{3}$`)
)

// rule checks one field and returns an issue, or nil when the field is
// acceptable. Rules run in record field order.
type rule func(model.BeneficiaryRecord) *model.Issue

var rules = []rule{
	checkName,
	checkMBI,
	dateRule("date_of_birth", func(r model.BeneficiaryRecord) model.Date { return r.DateOfBirth }),
	checkContract,
	checkPBP,
	dateRule("part_a_date", func(r model.BeneficiaryRecord) model.Date { return r.PartADate }),
	dateRule("part_b_date", func(r model.BeneficiaryRecord) model.Date { return r.PartBDate }),
	checkState,
	checkCounty,
}

// Check runs every rule against the record. The result is never nil.
func Check(record model.BeneficiaryRecord) []model.Issue {
	issues := []model.Issue{}
	for _, check := range rules {
		if found := check(record); found != nil {
			issues = append(issues, *found)
		}
	}
	issues = append(issues, checkLevels("recent_lis_levels", record.RecentLISLevels)...)
	issues = append(issues, checkLevels("recent_medicaid_levels", record.RecentMedicaidLevels)...)
	return issues
}

func issue(field string, severity model.IssueSeverity, format string, args ...any) *model.Issue {
	return &model.Issue{Field: field, Severity: severity, Message: fmt.Sprintf(format, args...)}
}

func checkName(r model.BeneficiaryRecord) *model.Issue {
	if strings.TrimSpace(r.FullName) == "" {
		return issue("full_name", model.SeverityInfo, "beneficiary name missing")
	}
	return nil
}

func checkMBI(r model.BeneficiaryRecord) *model.Issue {
	mbi := strings.TrimSpace(r.MBI)
	switch {
	case mbi == "":
		return issue("mbi", model.SeverityWarning, "MBI missing")
	case len(mbi) != 11:
		return issue("mbi", model.SeverityWarning, "MBI %q has %d characters, expected 11", mbi, len(mbi))
	case !mbiPattern.MatchString(mbi):
		return issue("mbi", model.SeverityWarning, "MBI %q does not match the CMS format", mbi)
	}
	return nil
}

func checkContract(r model.BeneficiaryRecord) *model.Issue {
	code := strings.TrimSpace(r.ContractCode)
	switch {
	case code == "":
		return issue("contract_code", model.SeverityWarning, "contract code missing")
	case !contractPattern.MatchString(strings.ToUpper(code)):
		return issue("contract_code", model.SeverityInfo, "unusual contract code %q", code)
	}
	return nil
}

func checkPBP(r model.BeneficiaryRecord) *model.Issue {
	pbp := strings.TrimSpace(r.PBP)
	switch {
	case pbp == "":
		return issue("pbp", model.SeverityInfo, "plan benefit package missing")
	case !pbpPattern.MatchString(pbp):
		return issue("pbp", model.SeverityInfo, "unusual plan benefit package %q", pbp)
	}
	return nil
}

func checkState(r model.BeneficiaryRecord) *model.Issue {
	state := strings.ToUpper(strings.TrimSpace(r.State))
	switch {
	case state == "":
		return issue("state", model.SeverityWarning, "state missing, disaster lookup skipped")
	case !IsStateCode(state):
		return issue("state", model.SeverityWarning, "unknown state code %q", r.State)
	}
	return nil
}

func checkCounty(r model.BeneficiaryRecord) *model.Issue {
	if strings.TrimSpace(r.State) != "" && strings.TrimSpace(r.County) == "" {
		return issue("county", model.SeverityInfo, "county missing, only statewide declarations can match")
	}
	return nil
}

func dateRule(field string, get func(model.BeneficiaryRecord) model.Date) func(model.BeneficiaryRecord) *model.Issue {
	return func(r model.BeneficiaryRecord) *model.Issue {
		d := get(r)
		switch {
		case d.Valid():
			return nil
		case strings.TrimSpace(d.Raw) == "":
			return issue(field, model.SeverityInfo, "%s missing", field)
		default:
			return issue(field, model.SeverityWarning, "%s %q is not a MM/DD/YYYY date", field, d.Raw)
		}
	}
}

func checkLevels(field string, levels []model.LevelEntry) []model.Issue {
	var out []model.Issue
	for i, l := range levels {
		if !l.StartDate.Valid() {
			out = append(out, *issue(fmt.Sprintf("%s[%d].start_date", field, i), model.SeverityInfo,
				"start date %q could not be parsed", l.StartDate.Raw))
		}
		if strings.TrimSpace(string(l.Level)) == "" {
			out = append(out, *issue(fmt.Sprintf("%s[%d].level", field, i), model.SeverityInfo, "level missing"))
		}
	}
	return out
}
