package anonymize

import "fmt"

// ageBracket is one row of the HIPAA Safe Harbor age table. Bounds are
// inclusive on both ends.
type ageBracket struct {
	lo, hi int
	label  string
}

// ageBrackets is built once and read-only. Safe Harbor requires merging all
// ages >= 90 into a single bracket.
var ageBrackets = []ageBracket{
	{0, 4, "0-4 years"},
	{5, 11, "5-11 years"},
	{12, 17, "12-17 years"},
	{18, 29, "18-29 years"},
	{30, 39, "30-39 years"},
	{40, 49, "40-49 years"},
	{50, 59, "50-59 years"},
	{60, 69, "60-69 years"},
	{70, 79, "70-79 years"},
	{80, 89, "80-89 years"},
	{90, 150, "90+ years"},
}

// BucketAge converts an exact age to its Safe Harbor age bracket.
// Returns "Unknown age" when age is nil; anything past the table collapses
// into "90+ years".
func BucketAge(age *int) string {
	if age == nil {
		return "Unknown age"
	}
	for _, b := range ageBrackets {
		if *age >= b.lo && *age <= b.hi {
			return b.label
		}
	}
	return "90+ years"
}

// BracketHeight converts an exact height in cm to a 10 cm range,
// e.g. 172 -> "170–180 cm range". Truncates toward the lower multiple of 10.
func BracketHeight(cm *float64) string {
	if cm == nil {
		return "Unknown height"
	}
	bucket := (int(*cm) / 10) * 10
	return fmt.Sprintf("%d–%d cm range", bucket, bucket+10)
}

// BracketWeight converts an exact weight in kg to a 10 kg range,
// e.g. 78 -> "70–80 kg range".
func BracketWeight(kg *float64) string {
	if kg == nil {
		return "Unknown weight"
	}
	bucket := (int(*kg) / 10) * 10
	return fmt.Sprintf("%d–%d kg range", bucket, bucket+10)
}
