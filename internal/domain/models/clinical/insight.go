package clinical

import "time"

// Insight type constants
const (
	InsightTypeAlert      = "alert"
	InsightTypeSuggestion = "suggestion"
	InsightTypeDiagnostic = "diagnostic"
	InsightTypeExam       = "exam"
	InsightTypeMedication = "medication"
)

// Insight is one structured observation extracted from the consultation
// transcript by the continuous analysis loop. Insights are immutable once
// created and accumulate in arrival order for the lifetime of a session;
// the only way to remove them is a full clear.
type Insight struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidInsightType reports whether t is one of the allowed insight types.
func ValidInsightType(t string) bool {
	switch t {
	case InsightTypeAlert, InsightTypeSuggestion, InsightTypeDiagnostic,
		InsightTypeExam, InsightTypeMedication:
		return true
	}
	return false
}
