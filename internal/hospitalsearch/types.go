package hospitalsearch

const (
	DefaultLocation      = "India"
	DefaultTopN          = 5
	DefaultMaxQueries    = 6
	DefaultMaxConditions = 5
	DefaultResultLimit   = 5

	SerpBaseURL               = "https://serpapi.com"
	DefaultSearchEngine       = "google"
	DefaultRateLimitPerMinute = 30
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencyUrgent  Urgency = "urgent"
)

type Origin string

const (
	OriginExternalSearch Origin = "external-search"
	OriginFallback       Origin = "fallback"
)

// MedicalAnalysis is the projection of an upstream analysis record that the
// hospital pipeline consumes. It is never mutated after being passed in.
type MedicalAnalysis struct {
	PrimaryFindings []string `json:"primary_findings,omitempty"`
	Diagnoses       []string `json:"diagnoses,omitempty"`
	Severity        Severity `json:"severity,omitempty"`
	Recommendations string   `json:"recommendations,omitempty"`
}

// SearchStrategy is derived once per request and read-only afterwards.
type SearchStrategy struct {
	Conditions        []string `json:"conditions"`
	Specialties       []string `json:"specialties"`
	ConditionKeywords []string `json:"condition_keywords"`
	Severity          Severity `json:"severity"`
	Urgency           Urgency  `json:"urgency"`
	SearchTerms       []string `json:"search_terms"`
	Location          string   `json:"search_location"`
}

// CandidateInstitution is a raw listing from either the external search or the
// fallback catalog. Position is the 0-based rank within a single query's
// results and is meaningful only for external candidates; catalog entries
// carry tags instead.
type CandidateInstitution struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Website     string   `json:"website,omitempty"`
	Origin      Origin   `json:"origin"`
	Position    int      `json:"position,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Emergency   bool     `json:"emergency,omitempty"`
	Premium     bool     `json:"premium,omitempty"`
}

type RankedRecommendation struct {
	Rank              int      `json:"rank"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Website           string   `json:"website,omitempty"`
	RelevanceScore    int      `json:"relevance_score"`
	WhyRecommended    []string `json:"why_recommended"`
	Specialties       []string `json:"specialties"`
	EmergencyServices bool     `json:"emergency_services"`
	QualityIndicators []string `json:"quality_indicators"`
}

// RecommendationSet is the pipeline output: the ranked list, the strategy that
// produced it, the candidate count before truncation, and a one-line basis
// string for display.
type RecommendationSet struct {
	Recommendations []RankedRecommendation `json:"top_hospitals"`
	Strategy        SearchStrategy         `json:"search_context"`
	TotalCandidates int                    `json:"total_found"`
	Basis           string                 `json:"recommendation_basis"`
	FallbackUsed    bool                   `json:"fallback_used"`
}

// ScoringConfig holds the additive bonus weights. The values are tuning
// constants carried over from the original heuristic; they are parameters
// here so tests can pin them down.
type ScoringConfig struct {
	PositionCeiling  int
	FallbackBaseline int
	PremiumBonus     int
	SpecialtyBonus   int
	ConditionBonus   int
	EmergencyBonus   int
	QualityBonus     int
	TechnologyBonus  int
}

func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		PositionCeiling:  15,
		FallbackBaseline: 5,
		PremiumBonus:     25,
		SpecialtyBonus:   15,
		ConditionBonus:   8,
		EmergencyBonus:   12,
		QualityBonus:     5,
		TechnologyBonus:  3,
	}
}
