package mealplan

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/joelkehle/healthgenie/internal/medanalysis"
)

// Agent generates a 3-day meal plan from a combined medical analysis with a
// text model call.
type Agent struct {
	exec *medanalysis.CallExecutor
}

func NewAgent(caller medanalysis.ModelCaller) *Agent {
	return &Agent{exec: medanalysis.NewCallExecutor(caller)}
}

// Generate builds the plan prompt, runs the model, and parses the response.
// A response that never parses degrades to an all-placeholder plan carrying
// the raw text instead of failing the stage.
func (a *Agent) Generate(ctx context.Context, analysis medanalysis.Analysis, preferences string) (Plan, error) {
	prompt := BuildPrompt(analysis, preferences)
	text, metrics, err := a.exec.Run(ctx, "meal-plan", prompt, nil, validatePlanText)
	if err != nil {
		if errors.Is(err, medanalysis.ErrUnusableResponse) && strings.TrimSpace(text) != "" {
			log.Printf("meal-plan unstructured_response attempts=%d chars=%d", metrics.Attempts, len(text))
			return ParsePlan(text), nil
		}
		return Plan{}, err
	}
	plan := ParsePlan(text)
	log.Printf("meal-plan generate_complete model=%s attempts=%d response_chars=%d", a.exec.ModelName(), metrics.Attempts, len(text))
	return plan, nil
}
