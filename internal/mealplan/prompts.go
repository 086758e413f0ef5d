package mealplan

import (
	"fmt"
	"strings"

	"github.com/joelkehle/healthgenie/internal/medanalysis"
)

const mealPlanPrompt = `You are a certified nutritionist creating a personalized meal plan. Based on the medical diagnosis and patient information provided, create a detailed 3-day food plan that:

1. Supports recovery and healing
2. Addresses any dietary restrictions related to the condition
3. Provides balanced nutrition
4. Is practical and easy to follow
5. Includes meal timing and portion guidance

Medical Information:
Diagnosis: %s
Additional Details: %s

Please provide:
- Day-wise meal plans (breakfast, lunch, dinner, snacks)
- Nutritional reasoning for each recommendation
- Foods to avoid
- Hydration guidelines

Format as:
**Day 1:**
- Breakfast: [meal with reasoning]
- Lunch: [meal with reasoning]
- Dinner: [meal with reasoning]
- Snacks: [snacks with timing]

**Day 2:** [similar format]
**Day 3:** [similar format]

**Foods to Avoid:** [list]
**Hydration:** [guidelines]
**Additional Notes:** [any special instructions]`

// BuildPrompt renders the meal-plan prompt from the combined medical
// analysis. Dietary preferences supplied with the case are appended when
// present.
func BuildPrompt(analysis medanalysis.Analysis, preferences string) string {
	diagnosis := fallbackDiagnosis
	if len(analysis.Diagnoses) > 0 {
		diagnosis = strings.Join(analysis.Diagnoses, ", ")
	}
	prompt := fmt.Sprintf(mealPlanPrompt, diagnosis, medanalysis.Summary(analysis))
	if p := strings.TrimSpace(preferences); p != "" {
		prompt += "\n\nDietary Preferences:\n" + p
	}
	return prompt
}
