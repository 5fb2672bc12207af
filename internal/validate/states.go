package validate

// stateCodes are USPS codes for states, DC and the territories FEMA
// declares disasters in.
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true,
	"DE": true, "DC": true, "FL": true, "GA": true, "HI": true, "ID": true, "IL": true,
	"IN": true, "IA": true, "KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true,
	"NV": true, "NH": true, "NJ": true, "NM": true, "NY": true, "NC": true, "ND": true,
	"OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true, "SD": true,
	"TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
	"AS": true, "GU": true, "MP": true, "PR": true, "VI": true,
	"FM": true, "MH": true, "PW": true,
}

// IsStateCode reports whether code is a known two-letter code. The caller
// upper-cases.
func IsStateCode(code string) bool {
	return stateCodes[code]
}
