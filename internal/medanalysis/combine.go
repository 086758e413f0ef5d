package medanalysis

import "strings"

// Combine merges the X-ray and report analyses into the record the
// downstream generators consume. Either side may be nil; the other passes
// through. List fields keep first-seen order with exact-string dedupe.
// Severity and confidence follow the X-ray side when present, otherwise the
// moderate/7 defaults hold. Combine never fails.
func Combine(xray, report *Analysis) Analysis {
	combined := Analysis{
		Severity:   SeverityModerate,
		Confidence: defaultConfidence,
	}

	if xray != nil {
		combined.Findings = mergeUnique(combined.Findings, xray.Findings)
		combined.Symptoms = mergeUnique(combined.Symptoms, xray.Symptoms)
		combined.Diagnoses = mergeUnique(combined.Diagnoses, xray.Diagnoses)
		combined.Recommendations = mergeUnique(combined.Recommendations, xray.Recommendations)
		if xray.Severity != "" {
			combined.Severity = xray.Severity
		}
		if xray.Confidence != 0 {
			combined.Confidence = xray.Confidence
		}
	}

	if report != nil {
		combined.PatientInfo = report.PatientInfo
		combined.Findings = mergeUnique(combined.Findings, report.Findings)
		combined.Symptoms = mergeUnique(combined.Symptoms, report.Symptoms)
		combined.Diagnoses = mergeUnique(combined.Diagnoses, report.Diagnoses)
		combined.Medications = mergeUnique(combined.Medications, report.Medications)
		combined.TestResults = mergeUnique(combined.TestResults, report.TestResults)
		combined.Recommendations = mergeUnique(combined.Recommendations, report.Recommendations)
	}

	combined.RawText = joinRawText(xray, report)
	combined.Critical = IdentifyCriticalFindings(combined)
	return combined
}

func mergeUnique(dst []string, src []string) []string {
	for _, v := range src {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dst = appendUnique(dst, v)
	}
	return dst
}

func joinRawText(xray, report *Analysis) string {
	var parts []string
	if xray != nil && strings.TrimSpace(xray.RawText) != "" {
		parts = append(parts, strings.TrimSpace(xray.RawText))
	}
	if report != nil && strings.TrimSpace(report.RawText) != "" {
		parts = append(parts, strings.TrimSpace(report.RawText))
	}
	return strings.Join(parts, "\n\n")
}
