package eligibility

import "github.com/ppiankov/sepcheck/internal/model"

var fallbackGuidance = []model.GuidancePrompt{
	{Code: "five_star_plan", Prompt: "Check if there's a 5-star plan in their area."},
	{Code: "chronic_condition", Prompt: "Check if the customer has a chronic condition like diabetes or heart disease."},
	{Code: "recent_move", Prompt: "Check if the customer recently moved."},
	{Code: "employer_cobra_loss", Prompt: "Ask if the customer recently lost employer or COBRA coverage."},
	{Code: "medicaid_lis_loss", Prompt: "Ask if the customer just lost Medicaid or LIS."},
	{Code: "dual_snp_disenrollment", Prompt: "Ask if they left a dual-eligible or SNP plan."},
	{Code: "long_term_care", Prompt: "Check if the customer is leaving long-term care."},
}

// FallbackGuidance returns the follow-up prompts shown when no strong SEP
// was found. The list is static; callers receive their own copy.
func FallbackGuidance() []model.GuidancePrompt {
	out := make([]model.GuidancePrompt, len(fallbackGuidance))
	copy(out, fallbackGuidance)
	return out
}
