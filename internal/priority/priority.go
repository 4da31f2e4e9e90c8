// Package priority maps stored job priority values, legacy numeric codes
// included, onto their canonical display labels.
package priority

const (
	Low     = "Low"
	Medium  = "Medium"
	High    = "High"
	Unknown = "Unknown"
)

var labels = map[string]string{
	"0":    Low,
	"1":    Medium,
	"2":    High,
	Low:    Low,
	Medium: Medium,
	High:   High,
}

// Normalize returns the canonical label for a stored priority value.
// Unrecognized values come back as Unknown; a listing never fails over
// one malformed priority.
func Normalize(raw string) string {
	if label, ok := labels[raw]; ok {
		return label
	}
	return Unknown
}
