package hospitalsearch

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one curated institution in the fallback catalog.
type CatalogEntry struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Website     string   `yaml:"website" json:"website"`
	Specialties []string `yaml:"specialties" json:"specialties"`
	Emergency   bool     `yaml:"emergency" json:"emergency"`
	Premium     bool     `yaml:"premium" json:"premium"`
}

type catalogFile struct {
	Hospitals []CatalogEntry `yaml:"hospitals"`
}

// DefaultCatalog returns the built-in institutions used when external search
// is unavailable. The list is curated, not exhaustive.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{
			Name:        "All India Institute of Medical Sciences (AIIMS), New Delhi",
			Description: "Premier medical institute with comprehensive healthcare services, advanced medical technology, and expert specialists across all medical fields.",
			Website:     "https://www.aiims.edu",
			Specialties: []string{"Cardiology", "Neurology", "Oncology", "Orthopedics", "Emergency Medicine", "Pulmonology"},
			Emergency:   true,
			Premium:     true,
		},
		{
			Name:        "Apollo Hospitals, Chennai",
			Description: "Leading private healthcare provider with state-of-the-art facilities, internationally trained doctors, and comprehensive medical services.",
			Website:     "https://www.apollohospitals.com",
			Specialties: []string{"Cardiology", "Oncology", "Neurology", "Orthopedics", "Gastroenterology"},
			Emergency:   true,
			Premium:     true,
		},
		{
			Name:        "Fortis Healthcare",
			Description: "Multi-specialty healthcare chain with advanced medical technology, experienced doctors, and patient-centric care across India.",
			Website:     "https://www.fortishealthcare.com",
			Specialties: []string{"Cardiology", "Neurology", "Orthopedics", "Emergency Medicine", "Pulmonology"},
			Emergency:   true,
			Premium:     true,
		},
		{
			Name:        "Max Healthcare",
			Description: "Premium healthcare provider with cutting-edge medical technology, internationally accredited facilities, and expert medical professionals.",
			Website:     "https://www.maxhealthcare.in",
			Specialties: []string{"Cardiology", "Oncology", "Neurology", "Orthopedics", "Gastroenterology"},
			Emergency:   true,
			Premium:     true,
		},
		{
			Name:        "Medanta - The Medicity, Gurgaon",
			Description: "Multi-super specialty hospital with world-class infrastructure, advanced medical equipment, and renowned medical experts.",
			Website:     "https://www.medanta.org",
			Specialties: []string{"Cardiology", "Neurology", "Oncology", "Orthopedics", "Emergency Medicine"},
			Emergency:   true,
			Premium:     true,
		},
	}
}

// LoadCatalog reads a catalog override file. Entries without a name or
// description are skipped with a log line; a file with no usable entries is
// an error so a bad override never silently empties the fallback pool.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var parsed catalogFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	entries := make([]CatalogEntry, 0, len(parsed.Hospitals))
	for _, e := range parsed.Hospitals {
		if e.Name == "" || e.Description == "" {
			log.Printf("hospital-search skipping incomplete catalog entry name=%q", e.Name)
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no usable entries", path)
	}
	return entries, nil
}

// CatalogCandidates converts catalog entries into ranking candidates with the
// fallback origin.
func CatalogCandidates(entries []CatalogEntry) []CandidateInstitution {
	out := make([]CandidateInstitution, 0, len(entries))
	for _, e := range entries {
		out = append(out, CandidateInstitution{
			Name:        e.Name,
			Description: e.Description,
			Website:     e.Website,
			Origin:      OriginFallback,
			Specialties: e.Specialties,
			Emergency:   e.Emergency,
			Premium:     e.Premium,
		})
	}
	return out
}
