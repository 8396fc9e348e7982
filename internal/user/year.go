package user

// Year labels in promotion order.
const (
	YearFE     = "FE"
	YearSE     = "SE"
	YearTE     = "TE"
	YearBE     = "BE"
	YearAlumni = "alumni"
)

var yearSequence = []string{YearFE, YearSE, YearTE, YearBE, YearAlumni}

var cohortLabels = map[string]string{
	"first":  YearFE,
	"second": YearSE,
	"third":  YearTE,
	"fourth": YearBE,
}

// NextYear returns the label a student moves to when the academic year closes.
// Alumni and unknown labels are returned unchanged.
func NextYear(label string) string {
	for i := 0; i < len(yearSequence)-1; i++ {
		if yearSequence[i] == label {
			return yearSequence[i+1]
		}
	}
	return label
}

// CohortLabel maps a timetable year (first..fourth) to the student year label.
func CohortLabel(timetableYear string) (string, bool) {
	label, ok := cohortLabels[timetableYear]
	return label, ok
}

// ValidYear reports whether label is a known student year label.
func ValidYear(label string) bool {
	for _, y := range yearSequence {
		if y == label {
			return true
		}
	}
	return false
}
