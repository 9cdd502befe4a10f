package grade

// Concept labels for qualitative subjects.
const (
	ConceptVeryGood     = "MB"
	ConceptGood         = "B"
	ConceptSufficient   = "S"
	ConceptInsufficient = "I"
)

// ConceptLabel maps a rounded numeric score to its display label.
// The thresholds are fixed.
func ConceptLabel(v int) string {
	switch {
	case v >= 70:
		return ConceptVeryGood
	case v >= 50:
		return ConceptGood
	case v >= 40:
		return ConceptSufficient
	default:
		return ConceptInsufficient
	}
}
