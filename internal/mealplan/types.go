package mealplan

// Fill values for sections the model response left empty.
const (
	defaultMealNote      = "Meal details to be customized"
	defaultCaloriesNote  = "To be determined based on individual factors"
	defaultHydrationNote = "Maintain adequate hydration throughout the day"
	fallbackDiagnosis    = "General health maintenance"
)

// DayPlan holds one day of meals. Lists keep response order.
type DayPlan struct {
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Dinner    []string `json:"dinner"`
	Snacks    []string `json:"snacks"`
}

// mealSlot maps a meal index (mealStems order) to its list.
func (d *DayPlan) mealSlot(i int) *[]string {
	switch i {
	case 0:
		return &d.Breakfast
	case 1:
		return &d.Lunch
	case 2:
		return &d.Dinner
	default:
		return &d.Snacks
	}
}

// NutritionalRequirements splits requirement bullets into macro and micro
// nutrient lists plus a caloric target.
type NutritionalRequirements struct {
	Macros   []string `json:"macros,omitempty"`
	Micros   []string `json:"micros,omitempty"`
	Calories string   `json:"calories"`
}

// Guidelines carries the cross-day dietary guidance sections.
type Guidelines struct {
	RecommendedFoods []string `json:"recommended_foods,omitempty"`
	FoodsToAvoid     []string `json:"foods_to_avoid,omitempty"`
	Hydration        string   `json:"hydration"`
	Supplements      []string `json:"supplements,omitempty"`
}

// Plan is a structured 3-day meal plan. Every section is populated: sections
// the response did not cover are filled with explicit placeholder values.
type Plan struct {
	Nutrition  NutritionalRequirements `json:"nutritional_requirements"`
	Days       [3]DayPlan              `json:"daily_plans"`
	Guidelines Guidelines              `json:"guidelines"`

	// RawText is the full model response the plan was parsed from.
	RawText string `json:"-"`
}
