package hospitalsearch

import (
	"strings"
)

const maxConditionKeywords = 10

// Extractor derives a SearchStrategy from a MedicalAnalysis record. The
// vocabulary and skip list are injectable so tests can pin them down.
type Extractor struct {
	vocab         SpecialtyVocabulary
	skipPhrases   []string
	maxConditions int
}

func NewExtractor() *Extractor {
	return &Extractor{
		vocab:         DefaultSpecialties,
		skipPhrases:   DefaultSkipPhrases,
		maxConditions: DefaultMaxConditions,
	}
}

func NewExtractorWithVocabulary(vocab SpecialtyVocabulary, skipPhrases []string, maxConditions int) *Extractor {
	if maxConditions <= 0 {
		maxConditions = DefaultMaxConditions
	}
	return &Extractor{vocab: vocab, skipPhrases: skipPhrases, maxConditions: maxConditions}
}

// ExtractStrategy builds the condition/specialty/severity/urgency fields of a
// strategy. Search terms are filled in separately by BuildQueries.
func (e *Extractor) ExtractStrategy(analysis MedicalAnalysis, location string) SearchStrategy {
	if strings.TrimSpace(location) == "" {
		location = DefaultLocation
	}

	raw := make([]string, 0, len(analysis.PrimaryFindings)+len(analysis.Diagnoses))
	raw = append(raw, analysis.PrimaryFindings...)
	raw = append(raw, analysis.Diagnoses...)

	conditions := e.processConditions(raw)
	severity := normalizeSeverity(analysis.Severity)

	return SearchStrategy{
		Conditions:        conditions,
		Specialties:       e.identifySpecialties(conditions),
		ConditionKeywords: extractConditionKeywords(conditions),
		Severity:          severity,
		Urgency:           urgencyFor(severity),
		Location:          location,
	}
}

// processConditions normalizes raw findings and diagnoses into a clean,
// deduplicated, ordered condition list.
func (e *Extractor) processConditions(raw []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, condition := range raw {
		if len(strings.TrimSpace(condition)) < 3 {
			continue
		}
		c := strings.ToLower(strings.TrimSpace(condition))
		if containsAny(c, e.skipPhrases) {
			continue
		}
		c = strings.Join(strings.Fields(c), " ")
		c = strings.Trim(c, ".-*• ")
		if len(c) <= 3 {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == e.maxConditions {
			break
		}
	}
	return out
}

// identifySpecialties matches every condition against every specialty rule.
// A condition may hit zero, one, or several specialties; each specialty is
// added once, in order of first hit.
func (e *Extractor) identifySpecialties(conditions []string) []string {
	out := []string{}
	for _, condition := range conditions {
		for _, rule := range e.vocab {
			if containsAny(condition, rule.Triggers) {
				out = appendIfMissing(out, rule.Name)
			}
		}
	}
	return out
}

// extractConditionKeywords pulls tokens of four or more characters out of the
// condition strings, drops generic medical stopwords, and keeps first-seen
// order.
func extractConditionKeywords(conditions []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, condition := range conditions {
		for _, tok := range splitWords(condition) {
			if len(tok) < 4 {
				continue
			}
			if _, stop := conditionStopwords[tok]; stop {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
			if len(out) == maxConditionKeywords {
				return out
			}
		}
	}
	return out
}

func normalizeSeverity(s Severity) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(string(s)))) {
	case SeverityMild:
		return SeverityMild
	case SeverityModerate:
		return SeverityModerate
	case SeveritySevere:
		return SeveritySevere
	case SeverityCritical:
		return SeverityCritical
	default:
		return SeverityModerate
	}
}

func urgencyFor(severity Severity) Urgency {
	if severity == SeveritySevere || severity == SeverityCritical {
		return UrgencyUrgent
	}
	return UrgencyRoutine
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// splitWords lowercases and splits on every non-alphanumeric rune.
func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func appendIfMissing(items []string, v string) []string {
	for _, item := range items {
		if item == v {
			return items
		}
	}
	return append(items, v)
}
