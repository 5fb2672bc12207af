package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeneficiaryRecord_UnmarshalTolerant(t *testing.T) {
	payload := `{
		"full_name": "Jane Q Public",
		"date_of_birth": "01/15/1959",
		"mbi": "1EG4-TE5-MK73",
		"contract_code": "H1234",
		"pbp": "001",
		"plan_type": "HMO",
		"part_a_date": "01/01/2024",
		"part_b_date": "unknown",
		"part_b_status": "Currently Entitled",
		"county": "Harris",
		"state": "TX",
		"recent_elections": ["X0001 PDP auto-enroll"],
		"recent_lis_levels": [{"level": 3, "start_date": "12/01/2023"}],
		"recent_medicaid_levels": [{"level": "QMB+", "start_date": "bad"}]
	}`

	var rec BeneficiaryRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	assert.Equal(t, "Jane Q Public", rec.FullName)
	assert.True(t, rec.DateOfBirth.Valid())
	assert.True(t, rec.PartADate.Equal(NewDate(2024, time.January, 1)))
	assert.False(t, rec.PartBDate.Valid())
	require.Len(t, rec.RecentLISLevels, 1)
	assert.Equal(t, Level("3"), rec.RecentLISLevels[0].Level)
	require.Len(t, rec.RecentMedicaidLevels, 1)
	assert.Equal(t, Level("QMB+"), rec.RecentMedicaidLevels[0].Level)
	assert.False(t, rec.RecentMedicaidLevels[0].StartDate.Valid())
}

func TestLevel_UnmarshalVariants(t *testing.T) {
	tests := map[string]Level{
		`"  2 "`: "2",
		`1`:      "1",
		`1.5`:    "1.5",
		`true`:   "true",
		`null`:   "",
		`{}`:     "",
	}
	for in, want := range tests {
		var l Level
		require.NoError(t, json.Unmarshal([]byte(in), &l), in)
		assert.Equal(t, want, l, in)
	}
}

func TestNormalizeMBI(t *testing.T) {
	assert.Equal(t, "1EG4TE5MK73", NormalizeMBI(" 1EG4TE5MK73 "))
	assert.Equal(t, "1EG0TE5MK70", NormalizeMBI("1EGOTE5MK7O"))
	// Only the documented substitution is applied.
	assert.Equal(t, "1EG4TESMK73", NormalizeMBI("1EG4TESMK73"))
	assert.Equal(t, "1eg0", NormalizeMBI("1eg0"))
}

func TestBeneficiaryRecord_PlanDisplay(t *testing.T) {
	assert.Equal(t, "H1234-001", BeneficiaryRecord{ContractCode: "1234", PBP: "001"}.PlanDisplay())
	assert.Equal(t, "", BeneficiaryRecord{ContractCode: "1234"}.PlanDisplay())
	assert.Equal(t, "", BeneficiaryRecord{PBP: "001"}.PlanDisplay())
}
