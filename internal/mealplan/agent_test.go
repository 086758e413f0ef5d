package mealplan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joelkehle/healthgenie/internal/medanalysis"
)

func TestBuildPrompt(t *testing.T) {
	analysis := medanalysis.Analysis{
		Diagnoses: []string{"Pneumonia", "Iron-deficiency anemia"},
		Symptoms:  []string{"fatigue"},
	}
	prompt := BuildPrompt(analysis, "vegetarian, no dairy")
	if !strings.Contains(prompt, "Diagnosis: Pneumonia, Iron-deficiency anemia") {
		t.Fatalf("prompt missing diagnosis: %q", prompt)
	}
	if !strings.Contains(prompt, "Symptoms: fatigue") {
		t.Fatalf("prompt missing summary: %q", prompt)
	}
	if !strings.Contains(prompt, "Dietary Preferences:\nvegetarian, no dairy") {
		t.Fatalf("prompt missing preferences: %q", prompt)
	}

	empty := BuildPrompt(medanalysis.Analysis{}, "")
	if !strings.Contains(empty, "Diagnosis: "+fallbackDiagnosis) {
		t.Fatalf("prompt missing fallback diagnosis: %q", empty)
	}
	if strings.Contains(empty, "Dietary Preferences") {
		t.Fatalf("prompt should omit empty preferences: %q", empty)
	}
}

func TestAgentGeneratePlan(t *testing.T) {
	fake := &scriptedCaller{responses: []string{strings.Join([]string{
		"**Day 1:**",
		"- Breakfast: Poha with peanuts",
		"- Lunch: Dal with brown rice",
		"**Hydration:** 2-3 liters daily",
	}, "\n")}}
	agent := NewAgent(fake)

	analysis := medanalysis.Analysis{Diagnoses: []string{"Gastritis"}}
	plan, err := agent.Generate(context.Background(), analysis, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := plan.Days[0].Breakfast; len(got) != 1 || got[0] != "Poha with peanuts" {
		t.Fatalf("breakfast = %v", got)
	}
	if plan.Guidelines.Hydration != "2-3 liters daily" {
		t.Fatalf("hydration = %q", plan.Guidelines.Hydration)
	}
	if !strings.Contains(fake.prompts[0], "Diagnosis: Gastritis") {
		t.Fatalf("prompt = %q", fake.prompts[0])
	}
	if got := plan.Days[1].Dinner; len(got) != 1 || got[0] != defaultMealNote {
		t.Fatalf("day 2 dinner placeholder = %v", got)
	}
}

func TestAgentDegradesToPlaceholderPlan(t *testing.T) {
	fake := &scriptedCaller{responses: []string{
		"freeform narrative with no sections",
		"more prose, still nothing usable",
		"final reply without any plan layout",
	}}
	agent := NewAgent(fake)

	plan, err := agent.Generate(context.Background(), medanalysis.Analysis{}, "")
	if err != nil {
		t.Fatalf("degraded plan should not error: %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
	if got := plan.Days[0].Breakfast; len(got) != 1 || got[0] != defaultMealNote {
		t.Fatalf("placeholder breakfast = %v", got)
	}
	if plan.RawText != "final reply without any plan layout" {
		t.Fatalf("raw text = %q", plan.RawText)
	}
}

func TestAgentPropagatesTransportFailure(t *testing.T) {
	fake := &scriptedCaller{errs: []error{errors.New("status code: 401 unauthorized")}}
	agent := NewAgent(fake)

	if _, err := agent.Generate(context.Background(), medanalysis.Analysis{}, ""); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Fatalf("auth failure should not be retried, got %d calls", fake.calls)
	}
}

// scriptedCaller feeds canned responses to the executor; errs takes
// precedence over responses at the same index.
type scriptedCaller struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCaller) GenerateText(_ context.Context, prompt string, _ ...[]byte) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", errors.New("scriptedCaller: no scripted response")
}

func (s *scriptedCaller) ModelName() string { return "scripted-model" }
