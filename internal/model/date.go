package model

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordDateLayout is the layout of every date field on a beneficiary record (MM/DD/YYYY).
const RecordDateLayout = "01/02/2006"

// DatasetDateLayout is the layout used by the disaster declaration dataset (YYYY-MM-DD).
const DatasetDateLayout = "2006-01-02"

// Date is an optional calendar date. The zero value is an absent date.
// Decoding never fails: text that does not parse is kept in Raw and the date
// stays absent, so evaluators can report "cannot determine" instead of erroring.
type Date struct {
	t     time.Time
	valid bool
	Raw   string
}

// NewDate builds a present date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t: t, valid: true, Raw: t.Format(RecordDateLayout)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an MM/DD/YYYY string. Unparsable input yields an absent
// date that remembers the raw text.
func ParseDate(s string) Date {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Date{}
	}
	t, err := time.Parse(RecordDateLayout, raw)
	if err != nil {
		// Single-digit months and days show up in OCR output ("1/5/2024").
		t, err = time.Parse("1/2/2006", raw)
		if err != nil {
			return Date{Raw: raw}
		}
	}
	return Date{t: t.UTC(), valid: true, Raw: raw}
}

// Valid reports whether the date is present and parsed.
func (d Date) Valid() bool {
	return d.valid
}

// Time returns the date at UTC midnight. Callers must check Valid first.
func (d Date) Time() time.Time {
	return d.t
}

// Equal reports whether both dates are present and fall on the same day.
func (d Date) Equal(other Date) bool {
	return d.valid && other.valid && d.t.Equal(other.t)
}

// After reports whether both dates are present and d is later than other.
func (d Date) After(other Date) bool {
	return d.valid && other.valid && d.t.After(other.t)
}

// String renders the date as MM/DD/YYYY, falling back to the raw text.
func (d Date) String() string {
	if d.valid {
		return d.t.Format(RecordDateLayout)
	}
	return d.Raw
}

// MarshalJSON writes the MM/DD/YYYY form, the raw text, or null.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.valid && d.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts any JSON value. Strings are parsed; everything else
// decodes as an absent date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = Date{}
		return nil
	}
	*d = ParseDate(s)
	return nil
}
