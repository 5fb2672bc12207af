package extract

import (
	"strings"

	"github.com/ppiankov/sepcheck/internal/model"
)

// Normalize returns a cleaned copy of rec: surrounding whitespace trimmed,
// the MBI O/0 confusion corrected, the state upper-cased and empty history
// entries dropped. rec itself is not modified.
func Normalize(rec model.BeneficiaryRecord) model.BeneficiaryRecord {
	out := rec
	out.FullName = strings.Join(strings.Fields(rec.FullName), " ")
	out.MBI = model.NormalizeMBI(strings.ToUpper(strings.ReplaceAll(rec.MBI, "-", "")))
	out.ContractCode = strings.TrimSpace(rec.ContractCode)
	out.PBP = strings.TrimSpace(rec.PBP)
	out.PlanType = strings.TrimSpace(rec.PlanType)
	out.PartBStatus = strings.TrimSpace(rec.PartBStatus)
	out.County = strings.TrimSpace(rec.County)
	out.State = strings.ToUpper(strings.TrimSpace(rec.State))

	out.RecentElections = nil
	for _, e := range rec.RecentElections {
		if e = strings.TrimSpace(e); e != "" {
			out.RecentElections = append(out.RecentElections, e)
		}
	}
	out.RecentLISLevels = append([]model.LevelEntry(nil), rec.RecentLISLevels...)
	out.RecentMedicaidLevels = append([]model.LevelEntry(nil), rec.RecentMedicaidLevels...)
	return out
}
