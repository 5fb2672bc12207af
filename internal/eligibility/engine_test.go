package eligibility

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/reference"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		rec  model.BeneficiaryRecord
		code string
	}{
		{"employer group without Part B", model.BeneficiaryRecord{ContractCode: "80123", PartBStatus: "  "}, BlockEmployerGroup},
		{"employer group with Part B", model.BeneficiaryRecord{ContractCode: "80123", PartBStatus: "Currently Entitled"}, ""},
		{"X contract", model.BeneficiaryRecord{ContractCode: "X0001"}, BlockInvalidContract},
		{"lowercase x contract", model.BeneficiaryRecord{ContractCode: "x0001"}, BlockInvalidContract},
		{"PACE plan", model.BeneficiaryRecord{ContractCode: "H1234", PlanType: "Pace plan"}, BlockPACE},
		{"ordinary HMO", model.BeneficiaryRecord{ContractCode: "H1234", PlanType: "HMO"}, ""},
		{"precedence", model.BeneficiaryRecord{ContractCode: "8001", PlanType: "PACE Plan"}, BlockEmployerGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.rec)
			assert.Equal(t, tt.code != "", got.Blocked)
			assert.Equal(t, tt.code, got.ReasonCode)
		})
	}
}

func TestEngine_BlockedSkipsEvaluation(t *testing.T) {
	engine := NewEngine(reference.Empty(), testLogger())
	res := engine.Evaluate(model.BeneficiaryRecord{ContractCode: "8001", PlanType: "PACE Plan"}, day(2024, 2, 1))

	assert.True(t, res.Blocked)
	require.NotNil(t, res.Block)
	assert.Equal(t, "employer group plan, no Part B end date.", res.Block.Reason)
	assert.Empty(t, res.Findings)
	assert.Empty(t, res.Qualifying)
	assert.False(t, res.NeedsFallbackGuidance)
}

func TestEngine_FindingsInTableOrder(t *testing.T) {
	engine := NewEngine(nil, testLogger())
	res := engine.Evaluate(model.BeneficiaryRecord{ContractCode: "H1234"}, day(2024, 2, 1))

	var got []model.Category
	for _, f := range res.Findings {
		got = append(got, f.Category)
	}
	assert.Equal(t, model.Categories(), got, "every category reports, advisory included")
}

func TestEngine_PartBAdvisoryNeverCounts(t *testing.T) {
	engine := NewEngine(nil, testLogger())
	res := engine.Evaluate(model.BeneficiaryRecord{ContractCode: "H1234", PartBStatus: "Terminated"}, day(2024, 2, 1))

	f, ok := res.Finding(model.CategoryPartBStatus)
	require.True(t, ok)
	assert.Equal(t, model.StatusAdvisory, f.Status)
	assert.NotContains(t, res.Qualifying, model.CategoryPartBStatus)

	res = engine.Evaluate(model.BeneficiaryRecord{ContractCode: "H1234", PartBStatus: "Currently entitled"}, day(2024, 2, 1))
	_, ok = res.Finding(model.CategoryPartBStatus)
	assert.False(t, ok)
}

func TestEngine_FallbackGuidance(t *testing.T) {
	asOf := day(2024, time.October, 10)
	snap := reference.NewSnapshot([]model.DisasterDeclaration{
		{State: "FL", Counties: []string{"All"}, StartDate: day(2024, 10, 5)},
	})
	engine := NewEngine(snap, testLogger())

	base := model.BeneficiaryRecord{ContractCode: "H1234", PartBStatus: "Currently Entitled"}

	t.Run("empty qualifying set", func(t *testing.T) {
		res := engine.Evaluate(base, asOf)
		assert.Empty(t, res.Qualifying)
		assert.True(t, res.NeedsFallbackGuidance)
		assert.Equal(t, model.FallbackNoSEP, res.FallbackReason)
		assert.Equal(t, FallbackGuidance(), res.Guidance)
	})

	t.Run("DST only", func(t *testing.T) {
		rec := base
		rec.State, rec.County = "FL", "Lee"
		res := engine.Evaluate(rec, asOf)
		assert.Equal(t, []model.Category{model.CategoryDST}, res.Qualifying)
		assert.True(t, res.NeedsFallbackGuidance)
		assert.Equal(t, model.FallbackDSTOnly, res.FallbackReason)
	})

	t.Run("DST and LEC", func(t *testing.T) {
		rec := base
		rec.State, rec.County = "FL", "Lee"
		rec.RecentElections = []string{"COBRA coverage ended"}
		res := engine.Evaluate(rec, asOf)
		assert.Equal(t, []model.Category{model.CategoryDST, model.CategoryLEC}, res.Qualifying)
		assert.False(t, res.NeedsFallbackGuidance)
		assert.Empty(t, res.Guidance)
	})

	t.Run("may qualify counts", func(t *testing.T) {
		rec := base
		rec.PartADate = model.ParseDate("01/01/2024")
		rec.PartBDate = model.ParseDate("03/01/2024")
		res := engine.Evaluate(rec, asOf)
		assert.Equal(t, []model.Category{model.CategoryICEP}, res.Qualifying)
		assert.False(t, res.NeedsFallbackGuidance)
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	payload := `{
		"part_a_date": "01/01/2024",
		"part_b_date": "01/01/2024",
		"date_of_birth": "01/15/1959",
		"contract_code": "H1234",
		"plan_type": "HMO",
		"recent_lis_levels": [],
		"recent_medicaid_levels": [],
		"recent_elections": []
	}`
	var rec model.BeneficiaryRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	engine := NewEngine(reference.Empty(), testLogger())
	res := engine.Evaluate(rec, day(2024, time.February, 1))

	require.False(t, res.Blocked)

	icep, ok := res.Finding(model.CategoryICEP)
	require.True(t, ok)
	assert.Equal(t, model.StatusQualifies, icep.Status)
	assert.Contains(t, icep.Message, "01/01/2024")

	// Turned 65 in January 2024, 31 days before asOf.
	iep2, ok := res.Finding(model.CategoryIEP2)
	require.True(t, ok)
	assert.Equal(t, model.StatusWindowPassed, iep2.Status)
	assert.False(t, iep2.Qualifies)

	advisory, ok := res.Finding(model.CategoryPartBStatus)
	require.True(t, ok)
	assert.Equal(t, model.StatusAdvisory, advisory.Status)

	for _, c := range []model.Category{model.CategoryLIS, model.CategoryDST, model.CategoryMCD, model.CategoryDIF, model.CategoryLEC} {
		f, ok := res.Finding(c)
		require.True(t, ok, c)
		assert.False(t, f.Qualifies, c)
	}

	assert.Equal(t, []model.Category{model.CategoryICEP}, res.Qualifying)
	assert.False(t, res.NeedsFallbackGuidance, "a qualifying ICEP finding is a strong lead")
}

func TestEngine_ZeroAsOfMeansToday(t *testing.T) {
	engine := NewEngine(nil, testLogger())
	res := engine.Evaluate(model.BeneficiaryRecord{ContractCode: "H1234"}, time.Time{})
	assert.False(t, res.AsOf.IsZero())
	assert.Equal(t, 0, res.AsOf.Hour())
}

func TestEngine_DoesNotMutateInput(t *testing.T) {
	rec := model.BeneficiaryRecord{
		ContractCode:         "H1234",
		RecentElections:      []string{"X0001", "PDP"},
		RecentMedicaidLevels: []model.LevelEntry{{Level: "A"}, {Level: "B"}},
	}
	before, err := json.Marshal(rec)
	require.NoError(t, err)

	NewEngine(nil, testLogger()).Evaluate(rec, day(2024, 2, 1))

	after, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestFallbackGuidance_StaticOrder(t *testing.T) {
	g := FallbackGuidance()
	require.Len(t, g, 7)
	assert.Equal(t, "five_star_plan", g[0].Code)
	assert.Equal(t, "long_term_care", g[6].Code)

	g[0].Code = "changed"
	assert.Equal(t, "five_star_plan", FallbackGuidance()[0].Code)
}
