package medanalysis

// Severity levels shared with the hospital-search pipeline.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityCritical = "critical"
)

// Urgency levels reported by critical-findings detection.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	defaultConfidence     = 7
	fallbackReportFinding = "Medical report processed - see full analysis"
	fallbackXRayFinding   = "X-ray analyzed - see full analysis text"
)

// Analysis is the structured result of one model analysis pass, or of the
// combine step that merges the X-ray and report passes. List fields keep the
// order in which entries first appeared in the response.
type Analysis struct {
	PatientInfo     string   `json:"patient_info,omitempty"`
	Findings        []string `json:"findings"`
	Symptoms        []string `json:"symptoms,omitempty"`
	Diagnoses       []string `json:"diagnoses"`
	Medications     []string `json:"medications,omitempty"`
	TestResults     []string `json:"test_results,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	// Severity is one of the Severity* constants, or empty when the pass
	// could not infer one. Confidence is the model's 1-10 self-assessment,
	// 0 when absent.
	Severity   string `json:"severity,omitempty"`
	Confidence int    `json:"confidence,omitempty"`

	Critical CriticalFindings `json:"critical_findings"`

	// RawText is the full model response the structured fields were parsed
	// from. Kept for rendering and audit, not serialized.
	RawText string `json:"-"`
}

// CriticalFindings is the keyword-scan verdict over an analysis.
type CriticalFindings struct {
	HasCritical     bool     `json:"has_critical"`
	Items           []string `json:"critical_items,omitempty"`
	Urgency         string   `json:"urgency_level"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Empty reports whether the analysis carries no structured content at all.
func (a Analysis) Empty() bool {
	return a.PatientInfo == "" &&
		len(a.Findings) == 0 &&
		len(a.Symptoms) == 0 &&
		len(a.Diagnoses) == 0 &&
		len(a.Medications) == 0 &&
		len(a.TestResults) == 0 &&
		len(a.Recommendations) == 0
}
