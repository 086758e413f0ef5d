package hospitalsearch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogEntriesComplete(t *testing.T) {
	entries := DefaultCatalog()
	if len(entries) != 5 {
		t.Fatalf("expected 5 built-in entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Name == "" || e.Description == "" || e.Website == "" || len(e.Specialties) == 0 {
			t.Fatalf("incomplete catalog entry %+v", e)
		}
		if !e.Emergency || !e.Premium {
			t.Fatalf("expected built-in entries to be emergency-capable and premium: %+v", e)
		}
	}
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hospitals.yaml")
	data := `hospitals:
  - name: Test General Hospital
    description: Community hospital with an emergency department
    website: https://testgeneral.example
    specialties: [Cardiology, Pulmonology]
    emergency: true
    premium: false
  - name: ""
    description: entry without a name is dropped
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected incomplete entry dropped, got %d entries", len(entries))
	}
	e := entries[0]
	if e.Name != "Test General Hospital" || !e.Emergency || e.Premium || len(e.Specialties) != 2 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestLoadCatalogRejectsUnusableFiles(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("hospitals: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(empty); err == nil {
		t.Fatal("expected error for catalog with no usable entries")
	}
	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("hospitals: {not a list}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(bad); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestCatalogCandidatesCarryFallbackOrigin(t *testing.T) {
	cands := CatalogCandidates(DefaultCatalog())
	if len(cands) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(cands))
	}
	for _, c := range cands {
		if c.Origin != OriginFallback {
			t.Fatalf("expected fallback origin, got %+v", c)
		}
		if c.Position != 0 {
			t.Fatalf("expected no search position on fallback candidates, got %+v", c)
		}
	}
}
