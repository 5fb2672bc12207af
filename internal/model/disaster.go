package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AllCounties is the sentinel county entry meaning the whole state is covered.
const AllCounties = "ALL"

// OngoingEndDate is the dataset spelling of an end date that is not yet known.
const OngoingEndDate = "TBD"

// DisasterDeclaration is one entry of the reference disaster dataset.
type DisasterDeclaration struct {
	State     string     `json:"state"`
	Counties  []string   `json:"counties"`
	Reason    string     `json:"reason,omitempty"` // incident type, e.g. "Hurricane"
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"` // nil while ongoing
}

// Ongoing reports whether the declaration has no end date yet.
func (d DisasterDeclaration) Ongoing() bool {
	return d.EndDate == nil
}

// CoversCounty reports whether the declaration lists the county or the ALL sentinel.
func (d DisasterDeclaration) CoversCounty(county string) bool {
	want := strings.ToUpper(strings.TrimSpace(county))
	for _, c := range d.Counties {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == AllCounties || (want != "" && c == want) {
			return true
		}
	}
	return false
}

// EndLabel renders the end date in dataset form, or TBD.
func (d DisasterDeclaration) EndLabel() string {
	if d.EndDate == nil {
		return OngoingEndDate
	}
	return d.EndDate.Format(DatasetDateLayout)
}

type declarationJSON struct {
	State     string   `json:"state"`
	Counties  []string `json:"counties"`
	Reason    string   `json:"reason,omitempty"`
	StartDate string   `json:"start_date"`
	EndDate   *string  `json:"end_date"`
}

// MarshalJSON writes the dataset file representation.
func (d DisasterDeclaration) MarshalJSON() ([]byte, error) {
	end := d.EndLabel()
	counties := d.Counties
	if counties == nil {
		counties = []string{}
	}
	return json.Marshal(declarationJSON{
		State:     d.State,
		Counties:  counties,
		Reason:    d.Reason,
		StartDate: d.StartDate.Format(DatasetDateLayout),
		EndDate:   &end,
	})
}

// UnmarshalJSON reads the dataset file representation. "TBD", "" and null end
// dates all mean ongoing.
func (d *DisasterDeclaration) UnmarshalJSON(data []byte) error {
	var raw declarationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	start, err := time.Parse(DatasetDateLayout, strings.TrimSpace(raw.StartDate))
	if err != nil {
		return fmt.Errorf("start_date %q: %w", raw.StartDate, err)
	}

	var end *time.Time
	if raw.EndDate != nil {
		s := strings.TrimSpace(*raw.EndDate)
		if s != "" && !strings.EqualFold(s, OngoingEndDate) {
			t, err := time.Parse(DatasetDateLayout, s)
			if err != nil {
				return fmt.Errorf("end_date %q: %w", s, err)
			}
			end = &t
		}
	}

	*d = DisasterDeclaration{
		State:     strings.TrimSpace(raw.State),
		Counties:  raw.Counties,
		Reason:    raw.Reason,
		StartDate: start,
		EndDate:   end,
	}
	return nil
}
