package hospitalsearch

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

type scoredCandidate struct {
	candidate CandidateInstitution
	score     int
	reasons   []string
	emergency bool
}

// Rank deduplicates, scores, and orders the candidate union against the
// strategy, returning the top-N recommendations and the number of candidates
// considered before truncation. External candidates are processed ahead of
// fallback ones so they win name collisions. Malformed candidates are dropped,
// never fatal.
func Rank(candidates []CandidateInstitution, strategy SearchStrategy, cfg ScoringConfig, topN int) ([]RankedRecommendation, int) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	ordered := make([]CandidateInstitution, 0, len(candidates))
	for _, c := range candidates {
		if c.Origin != OriginFallback {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if c.Origin == OriginFallback {
			ordered = append(ordered, c)
		}
	}

	seen := map[string]struct{}{}
	scored := make([]scoredCandidate, 0, len(ordered))
	for _, c := range ordered {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Description) == "" {
			log.Printf("hospital-search dropping malformed candidate name=%q origin=%s", c.Name, c.Origin)
			continue
		}
		key := normalizeName(c.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sc := scoreCandidate(c, strategy, cfg)
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	total := len(scored)
	if len(scored) > topN {
		scored = scored[:topN]
	}

	recs := make([]RankedRecommendation, 0, len(scored))
	for i, sc := range scored {
		recs = append(recs, RankedRecommendation{
			Rank:              i + 1,
			Name:              sc.candidate.Name,
			Description:       sc.candidate.Description,
			Website:           sc.candidate.Website,
			RelevanceScore:    sc.score,
			WhyRecommended:    sc.reasons,
			Specialties:       inferDisplaySpecialties(sc.candidate),
			EmergencyServices: sc.emergency,
			QualityIndicators: inferQualityIndicators(sc.candidate.Description),
		})
	}
	return recs, total
}

// scoreCandidate applies the additive bonus rules to one candidate. It is a
// pure function of (candidate, strategy, weights) and also reports which
// rules fired, in rule order.
func scoreCandidate(c CandidateInstitution, strategy SearchStrategy, cfg ScoringConfig) scoredCandidate {
	name := strings.ToLower(c.Name)
	description := strings.ToLower(c.Description)
	tags := lowerAll(c.Specialties)

	score := 0
	reasons := []string{}

	if c.Origin == OriginExternalSearch {
		if base := cfg.PositionCeiling - c.Position; base > 0 {
			score += base
		}
	} else {
		score += cfg.FallbackBaseline
	}

	if c.Premium || containsAny(name, DefaultPremiumFragments) || containsAny(description, DefaultPremiumFragments) {
		score += cfg.PremiumBonus
		reasons = append(reasons, "premier institution")
	}

	for _, specialty := range strategy.Specialties {
		rule, ok := DefaultSpecialties.rule(specialty)
		if !ok {
			continue
		}
		if containsAny(description, rule.Triggers) || tagsMatch(tags, rule.Triggers) {
			score += cfg.SpecialtyBonus
			reasons = append(reasons, fmt.Sprintf("matches %s specialty", specialty))
		}
	}

	matchedKeywords := []string{}
	for _, kw := range strategy.ConditionKeywords {
		if strings.Contains(description, kw) {
			score += cfg.ConditionBonus
			matchedKeywords = append(matchedKeywords, kw)
		}
	}
	if len(matchedKeywords) > 0 {
		reasons = append(reasons, "relevant to: "+strings.Join(matchedKeywords, ", "))
	}

	emergency := c.Emergency || containsAny(description, emergencyIndicators) || containsAny(name, emergencyIndicators)
	if strategy.Urgency == UrgencyUrgent && emergency {
		score += cfg.EmergencyBonus
		reasons = append(reasons, "emergency-capable")
	}

	if containsAny(description, DefaultQualityMarkers) {
		score += cfg.QualityBonus
		reasons = append(reasons, "recognized quality markers")
	}
	if containsAny(description, DefaultTechnologyMarkers) {
		score += cfg.TechnologyBonus
		reasons = append(reasons, "advanced medical technology")
	}

	return scoredCandidate{candidate: c, score: score, reasons: reasons, emergency: emergency}
}

// normalizeName collapses a hospital name for duplicate detection: lowercase,
// punctuation removed, whitespace collapsed.
func normalizeName(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	for _, r := range lower {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// inferDisplaySpecialties derives the specialty list shown on a
// recommendation. Catalog tags win when present; otherwise the description is
// scanned with the display vocabulary.
func inferDisplaySpecialties(c CandidateInstitution) []string {
	if len(c.Specialties) > 0 {
		return c.Specialties
	}
	description := strings.ToLower(c.Description)
	out := []string{}
	for _, rule := range displaySpecialtyTerms {
		if containsAny(description, rule.Triggers) {
			out = append(out, rule.Name)
		}
	}
	if len(out) == 0 {
		return []string{"General Medicine"}
	}
	return out
}

func inferQualityIndicators(description string) []string {
	lower := strings.ToLower(description)
	out := []string{}
	for _, rule := range displayQualityTerms {
		if containsAny(lower, rule.Triggers) {
			out = append(out, rule.Name)
		}
	}
	return out
}

func tagsMatch(tags []string, triggers []string) bool {
	for _, tag := range tags {
		if containsAny(tag, triggers) {
			return true
		}
	}
	return false
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToLower(item)
	}
	return out
}
