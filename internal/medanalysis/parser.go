package medanalysis

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Section identifies which part of an analysis a response line feeds.
type Section string

const (
	SectionNone            Section = ""
	SectionPatientInfo     Section = "patient_info"
	SectionFindings        Section = "findings"
	SectionSymptoms        Section = "symptoms"
	SectionDiagnoses       Section = "diagnoses"
	SectionMedications     Section = "medications"
	SectionTestResults     Section = "test_results"
	SectionRecommendations Section = "recommendations"
	SectionSeverity        Section = "severity"
	SectionConfidence      Section = "confidence"
)

// sectionLabels maps label stems to sections. Probed in order; stems rather
// than full words so that "Diagnosis/Diagnoses" and "Patient Information"
// variants all land in the right section.
var sectionLabels = []struct {
	stem    string
	section Section
}{
	{"patient info", SectionPatientInfo},
	{"test result", SectionTestResults},
	{"finding", SectionFindings},
	{"symptom", SectionSymptoms},
	{"diagnos", SectionDiagnoses},
	{"medication", SectionMedications},
	{"severity", SectionSeverity},
	{"confidence", SectionConfidence},
	{"recommendation", SectionRecommendations},
}

// A heading label longer than this is treated as content that happens to
// contain a colon, not as a section heading.
const maxHeadingLabel = 48

// ParsedLine is the tagged classification of one response line: either
// recognized as a heading or content of a section, or kept verbatim as
// unrecognized input. Classification never fails.
type ParsedLine struct {
	Section Section // SectionNone when the line was not recognized
	Value   string  // cleaned content; empty for a bare heading
	Heading bool    // the line opened Section
	Raw     string  // original line text
}

// ClassifyLines runs the tolerant line-by-line classifier over a model
// response. Blank lines are dropped; every other line is returned, tagged.
// Content lines (bullets and plain continuations) are attributed to the most
// recently opened section.
func ClassifyLines(text string) []ParsedLine {
	var out []ParsedLine
	current := SectionNone
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if section, inline, ok := matchHeading(line); ok {
			current = section
			out = append(out, ParsedLine{Section: section, Value: inline, Heading: true, Raw: raw})
			continue
		}
		if item, ok := bulletValue(line); ok {
			out = append(out, ParsedLine{Section: current, Value: item, Raw: raw})
			continue
		}
		if current != SectionNone && !strings.HasPrefix(line, "**") {
			out = append(out, ParsedLine{Section: current, Value: line, Raw: raw})
			continue
		}
		out = append(out, ParsedLine{Raw: raw})
	}
	return out
}

// matchHeading reports whether a line opens a known section. A heading is a
// line whose text before the first colon, after ornament stripping, contains
// one of the section label stems. The remainder after the colon is the inline
// value ("**Diagnosis:** Pneumonia" yields ("diagnoses", "Pneumonia")).
func matchHeading(line string) (Section, string, bool) {
	stripped := stripOrnaments(line)
	colon := strings.Index(stripped, ":")
	if colon < 0 {
		return SectionNone, "", false
	}
	label := strings.ToLower(strings.Trim(stripped[:colon], "*_ \t"))
	if label == "" || len(label) > maxHeadingLabel {
		return SectionNone, "", false
	}
	for _, sl := range sectionLabels {
		if strings.Contains(label, sl.stem) {
			value := strings.TrimSpace(strings.Trim(stripped[colon+1:], "*_ \t"))
			return sl.section, value, true
		}
	}
	return SectionNone, "", false
}

// stripOrnaments removes leading markdown decoration: heading markers, bullet
// markers, bold markers, and "1." style numbering.
func stripOrnaments(line string) string {
	s := strings.TrimLeft(line, "#-*• \t")
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = strings.TrimSpace(strings.TrimLeft(s[i+1:], "*• \t"))
	}
	return s
}

// bulletValue extracts the content of a bullet line. Bold lines ("**…") are
// not bullets even though they start with an asterisk.
func bulletValue(line string) (string, bool) {
	if strings.HasPrefix(line, "**") {
		return "", false
	}
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimLeft(line, "-*• ")), true
		}
	}
	return "", false
}

// ParseAnalysis builds an Analysis from a model response. Findings aggregate
// the dedicated findings section plus symptoms and diagnoses, so downstream
// consumers see one flat list; entries are deduplicated by exact string,
// first occurrence wins.
func ParseAnalysis(text string) Analysis {
	a := Analysis{RawText: strings.TrimSpace(text)}
	for _, ln := range ClassifyLines(text) {
		if ln.Section == SectionNone || ln.Value == "" {
			continue
		}
		switch ln.Section {
		case SectionPatientInfo:
			if a.PatientInfo == "" {
				a.PatientInfo = ln.Value
			} else {
				a.PatientInfo += "; " + ln.Value
			}
		case SectionFindings:
			a.Findings = appendUnique(a.Findings, ln.Value)
		case SectionSymptoms:
			a.Symptoms = appendUnique(a.Symptoms, ln.Value)
		case SectionDiagnoses:
			a.Diagnoses = appendUnique(a.Diagnoses, ln.Value)
		case SectionMedications:
			a.Medications = appendUnique(a.Medications, ln.Value)
		case SectionTestResults:
			a.TestResults = appendUnique(a.TestResults, ln.Value)
		case SectionRecommendations:
			a.Recommendations = appendUnique(a.Recommendations, ln.Value)
		case SectionSeverity:
			if s := normalizeSeverity(ln.Value); s != "" {
				a.Severity = s
			}
		case SectionConfidence:
			if c, ok := parseConfidence(ln.Value); ok {
				a.Confidence = c
			}
		}
	}
	for _, s := range a.Symptoms {
		a.Findings = appendUnique(a.Findings, s)
	}
	for _, d := range a.Diagnoses {
		a.Findings = appendUnique(a.Findings, d)
	}
	return a
}

// validateAnalysisText is the executor validation hook: a response parses
// when at least one clinical section came through.
func validateAnalysisText(text string) error {
	a := ParseAnalysis(text)
	if len(a.Findings) == 0 && len(a.Symptoms) == 0 && len(a.Diagnoses) == 0 && len(a.Recommendations) == 0 {
		return errors.New("no recognizable sections in response")
	}
	return nil
}

var confidenceRe = regexp.MustCompile(`\b(10|[1-9])\b`)

// parseConfidence pulls the first 1-10 integer out of a confidence value
// ("8", "8/10", "[7] fairly confident").
func parseConfidence(value string) (int, bool) {
	m := confidenceRe.FindStringSubmatch(value)
	if len(m) != 2 {
		return 0, false
	}
	c, err := strconv.Atoi(m[1])
	if err != nil || c < 1 || c > 10 {
		return 0, false
	}
	return c, true
}

// normalizeSeverity maps free-text severity to a canonical level, worst
// level first, or empty when none of the known levels appears.
func normalizeSeverity(value string) string {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, SeverityCritical):
		return SeverityCritical
	case strings.Contains(v, SeveritySevere):
		return SeveritySevere
	case strings.Contains(v, SeverityModerate):
		return SeverityModerate
	case strings.Contains(v, SeverityMild):
		return SeverityMild
	default:
		return ""
	}
}

// deriveSeverity scans a whole response for severity language when no
// explicit severity section was present. Defaults to moderate.
func deriveSeverity(text string) string {
	if s := normalizeSeverity(text); s != "" {
		return s
	}
	return SeverityModerate
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// unstructuredAnalysis is the degraded result used when a response never
// parses: the note becomes the single finding and the raw text is kept.
func unstructuredAnalysis(raw, note string) Analysis {
	return Analysis{
		Findings: []string{note},
		RawText:  strings.TrimSpace(raw),
	}
}
