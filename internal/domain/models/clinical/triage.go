package clinical

// Global triage status constants
const (
	TriageStatusCritical = "critical"
	TriageStatusWarning  = "warning"
	TriageStatusStable   = "stable"
)

// Exam finding status constants, ordered by severity for display
// (critical > altered > normal). The core produces the unsorted set;
// ordering is the consumer's concern.
const (
	FindingStatusNormal   = "normal"
	FindingStatusAltered  = "altered"
	FindingStatusCritical = "critical"
)

// Diagnostic hypothesis probability tiers
const (
	HypothesisLikely       = "likely"
	HypothesisPossible     = "possible"
	HypothesisDifferential = "differential"
)

// VitalSigns holds free-form vital sign readings as transcribed from the
// triage sheet. Units are whatever the source document used.
type VitalSigns struct {
	BloodPressure    string `json:"blood_pressure,omitempty"`
	HeartRate        string `json:"heart_rate,omitempty"`
	RespiratoryRate  string `json:"respiratory_rate,omitempty"`
	Temperature      string `json:"temperature,omitempty"`
	OxygenSaturation string `json:"oxygen_saturation,omitempty"`
	PainScale        string `json:"pain_scale,omitempty"`
}

// ExamFinding is one analyzed laboratory or imaging parameter.
type ExamFinding struct {
	Parameter         string `json:"parameter"`
	Value             string `json:"value"`
	ReferenceRange    string `json:"reference_range,omitempty"`
	Status            string `json:"status"`
	Interpretation    string `json:"interpretation,omitempty"`
	RecommendedAction string `json:"recommended_action,omitempty"`
}

// DiagnosticHypothesis pairs a condition with its probability tier.
type DiagnosticHypothesis struct {
	Condition   string `json:"condition"`
	Probability string `json:"probability"`
	Rationale   string `json:"rationale,omitempty"`
}

// TriageAnalysis is the synthesis-stage aggregate: everything the staged
// pipeline could extract and infer about the patient, in one object. All
// fields are optional on the wire; consumers validate what they need.
type TriageAnalysis struct {
	PatientName    string     `json:"patient_name,omitempty"`
	PatientAge     string     `json:"patient_age,omitempty"`
	ChiefComplaint string     `json:"chief_complaint,omitempty"`
	VitalSigns     VitalSigns `json:"vital_signs,omitempty"`

	Status string `json:"status,omitempty"`

	Alerts        []string               `json:"alerts,omitempty"`
	RedFlags      []string               `json:"red_flags,omitempty"`
	Differentials []string               `json:"differentials,omitempty"`
	Timeline      []string               `json:"timeline,omitempty"`
	Exams         []string               `json:"exams,omitempty"`
	Medications   []string               `json:"medications,omitempty"`
	Hypotheses    []DiagnosticHypothesis `json:"hypotheses,omitempty"`
	ExamFindings  []ExamFinding          `json:"exam_findings,omitempty"`
}
