package hospitalsearch

// SpecialtyRule maps one care specialty to the substrings that indicate a
// condition needs it. Rules are evaluated in declaration order so derived
// specialty lists are deterministic.
type SpecialtyRule struct {
	Name     string
	Triggers []string
}

type SpecialtyVocabulary []SpecialtyRule

var DefaultSpecialties = SpecialtyVocabulary{
	{Name: "cardiac", Triggers: []string{"cardiology", "heart", "cardiac", "cardiovascular", "coronary"}},
	{Name: "pulmonary", Triggers: []string{"pulmonology", "lung", "respiratory", "chest", "breathing"}},
	{Name: "orthopedic", Triggers: []string{"orthopedics", "bone", "joint", "spine", "fracture"}},
	{Name: "neurological", Triggers: []string{"neurology", "brain", "neuro", "stroke", "nervous"}},
	{Name: "oncology", Triggers: []string{"cancer", "oncology", "tumor", "malignancy", "chemotherapy"}},
	{Name: "gastro", Triggers: []string{"gastroenterology", "stomach", "liver", "digestive", "intestine"}},
	{Name: "emergency", Triggers: []string{"emergency", "trauma", "critical", "urgent", "accident"}},
	{Name: "pediatric", Triggers: []string{"pediatric", "children", "child", "infant", "kids"}},
	{Name: "gynecology", Triggers: []string{"gynecology", "women", "pregnancy", "obstetrics", "maternity"}},
}

func (v SpecialtyVocabulary) rule(name string) (SpecialtyRule, bool) {
	for _, r := range v {
		if r.Name == name {
			return r, true
		}
	}
	return SpecialtyRule{}, false
}

// Flagship institution name fragments that earn the premium bonus.
var DefaultPremiumFragments = []string{
	"aiims", "apollo", "fortis", "max", "medanta", "manipal",
	"tata memorial", "pgimer", "christian medical college",
	"sankara nethralaya", "narayana health", "aster",
}

var DefaultQualityMarkers = []string{"best", "top", "leading", "premier"}

var DefaultTechnologyMarkers = []string{"state-of-the-art", "advanced technology"}

// Boilerplate phrases that disqualify an extracted condition string.
var DefaultSkipPhrases = []string{
	"not specified", "analysis completed", "see detailed",
	"medical report", "x-ray analysis", "further evaluation",
}

// Tokens too generic to help match a hospital description.
var conditionStopwords = map[string]struct{}{
	"patient": {}, "medical": {}, "condition": {}, "diagnosis": {},
	"treatment": {}, "analysis": {}, "report": {}, "finding": {},
	"result": {}, "examination": {},
}

// Indicators that a listing offers emergency care, checked against name and
// description of external candidates.
var emergencyIndicators = []string{
	"emergency", "24/7", "trauma", "critical care", "icu",
	"round the clock", "emergency department",
}

/// Display vocabularies used when presenting a recommendation: specialties and
// quality indicators inferred from a listing's description.
var displaySpecialtyTerms = []SpecialtyRule{
	{Name: "Cardiology", Triggers: []string{"cardiology", "heart", "cardiac"}},
	{Name: "Orthopedics", Triggers: []string{"orthopedics", "bone", "joint", "spine"}},
	{Name: "Neurology", Triggers: []string{"neurology", "brain", "neuro"}},
	{Name: "Oncology", Triggers: []string{"oncology", "cancer", "tumor"}},
	{Name: "Pediatrics", Triggers: []string{"pediatric", "children"}},
	{Name: "Emergency Medicine", Triggers: []string{"emergency", "trauma", "critical care"}},
	{Name: "Gastroenterology", Triggers: []string{"gastroenterology", "digestive"}},
	{Name: "Pulmonology", Triggers: []string{"pulmonology", "respiratory", "lung"}},
}

var displayQualityTerms = []SpecialtyRule{
	{Name: "Accredited", Triggers: []string{"accredited", "certified", "iso certified"}},
	{Name: "Award Winning", Triggers: []string{"award", "winner", "recognition"}},
	{Name: "Advanced Technology", Triggers: []string{"advanced", "state-of-the-art", "modern equipment"}},
	{Name: "Experienced Staff", Triggers: []string{"experienced", "expert", "specialist"}},
	{Name: "Research Center", Triggers: []string{"research", "clinical trials", "innovation"}},
}
