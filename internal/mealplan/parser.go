package mealplan

import (
	"errors"
	"regexp"
	"strings"
)

type section int

const (
	sectionNone section = iota
	sectionNutrition
	sectionGuidelines
)

type guidelineTarget int

const (
	targetRecommended guidelineTarget = iota
	targetAvoid
	targetHydration
	targetSupplements
)

type headingKind int

const (
	headingNone headingKind = iota
	headingNutrition
	headingCalories
	headingAvoid
	headingHydration
	headingSupplements
	headingRecommended
)

// mealStems index order matches DayPlan.mealSlot.
var mealStems = [...]string{"breakfast", "lunch", "dinner", "snack"}

var dayRe = regexp.MustCompile(`(?i)\bday\s*([1-9])\b`)

// ParsePlan runs the tolerant day/meal classifier over a model response and
// fills every uncovered section with its placeholder value. It never fails;
// a response with nothing recognizable simply yields an all-placeholder plan.
func ParsePlan(text string) Plan {
	p, _ := parsePlan(text)
	p.fillDefaults()
	return p
}

// parsePlan returns the raw parse plus the number of content items captured,
// before placeholder filling.
func parsePlan(text string) (Plan, int) {
	var p Plan
	p.RawText = strings.TrimSpace(text)
	captured := 0
	sec := sectionNone
	target := targetRecommended
	day := 0  // 1-based; 0 when no day heading is open
	meal := -1

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		stripped := stripOrnaments(line)
		label, inline, hasColon := splitLabel(stripped)
		item, isBullet := bulletValue(line)

		if d, ok := dayNumber(stripped); ok {
			day, meal = d, -1
			continue
		}
		// Meal stems only open a meal inside the day context; in the
		// nutrition and guideline sections a line like "- Salty snacks"
		// is content, not a heading.
		if sec == sectionNone || day > 0 {
			if m, ok := matchMeal(label, hasColon); ok {
				meal = m
				if day >= 1 && day <= 3 && inline != "" {
					slot := p.Days[day-1].mealSlot(meal)
					*slot = append(*slot, inline)
					captured++
				}
				continue
			}
		}
		// Section headings are non-bullet lines, or bullet lines whose
		// pre-colon label names the section ("- Hydration: 2L daily").
		if !isBullet || hasColon {
			if kind := matchSection(label); kind != headingNone {
				day, meal = 0, -1
				switch kind {
				case headingNutrition:
					sec = sectionNutrition
				case headingCalories:
					sec = sectionNutrition
					if inline != "" {
						p.Nutrition.Calories = inline
						captured++
					}
				case headingAvoid:
					sec, target = sectionGuidelines, targetAvoid
					if inline != "" {
						p.Guidelines.FoodsToAvoid = append(p.Guidelines.FoodsToAvoid, inline)
						captured++
					}
				case headingHydration:
					sec, target = sectionGuidelines, targetHydration
					if inline != "" {
						p.Guidelines.Hydration = inline
						captured++
					}
				case headingSupplements:
					sec, target = sectionGuidelines, targetSupplements
					if inline != "" {
						p.Guidelines.Supplements = append(p.Guidelines.Supplements, inline)
						captured++
					}
				case headingRecommended:
					sec, target = sectionGuidelines, targetRecommended
					if inline != "" {
						p.Guidelines.RecommendedFoods = append(p.Guidelines.RecommendedFoods, inline)
						captured++
					}
				}
				continue
			}
		}
		if !isBullet {
			continue
		}

		lower := strings.ToLower(item)
		switch {
		case day > 0 && meal >= 0:
			if day <= 3 {
				slot := p.Days[day-1].mealSlot(meal)
				*slot = append(*slot, item)
				captured++
			}
		case sec == sectionNutrition:
			switch {
			case strings.Contains(lower, "calorie"):
				p.Nutrition.Calories = item
			case strings.Contains(lower, "protein"), strings.Contains(lower, "fat"), strings.Contains(lower, "carb"):
				p.Nutrition.Macros = append(p.Nutrition.Macros, item)
			default:
				p.Nutrition.Micros = append(p.Nutrition.Micros, item)
			}
			captured++
		case sec == sectionGuidelines:
			switch {
			case strings.Contains(lower, "avoid"):
				p.Guidelines.FoodsToAvoid = append(p.Guidelines.FoodsToAvoid, item)
			case strings.Contains(lower, "hydration"), strings.Contains(lower, "water"):
				p.Guidelines.Hydration = item
			case strings.Contains(lower, "supplement"):
				p.Guidelines.Supplements = append(p.Guidelines.Supplements, item)
			case target == targetAvoid:
				p.Guidelines.FoodsToAvoid = append(p.Guidelines.FoodsToAvoid, item)
			case target == targetHydration:
				p.Guidelines.Hydration = item
			case target == targetSupplements:
				p.Guidelines.Supplements = append(p.Guidelines.Supplements, item)
			default:
				p.Guidelines.RecommendedFoods = append(p.Guidelines.RecommendedFoods, item)
			}
			captured++
		}
	}
	return p, captured
}

// validatePlanText is the executor validation hook: a response is usable when
// at least one plan item was captured.
func validatePlanText(text string) error {
	if _, captured := parsePlan(text); captured == 0 {
		return errors.New("no meal plan sections in response")
	}
	return nil
}

func (p *Plan) fillDefaults() {
	for i := range p.Days {
		d := &p.Days[i]
		for _, slot := range []*[]string{&d.Breakfast, &d.Lunch, &d.Dinner, &d.Snacks} {
			if len(*slot) == 0 {
				*slot = []string{defaultMealNote}
			}
		}
	}
	if strings.TrimSpace(p.Nutrition.Calories) == "" {
		p.Nutrition.Calories = defaultCaloriesNote
	}
	if strings.TrimSpace(p.Guidelines.Hydration) == "" {
		p.Guidelines.Hydration = defaultHydrationNote
	}
}

// dayNumber recognizes a day heading: "day N" near the start of the line
// after ornament stripping ("**Day 2:**", "Day 1 - Monday").
func dayNumber(stripped string) (int, bool) {
	loc := dayRe.FindStringSubmatchIndex(stripped)
	if loc == nil || loc[0] > 8 {
		return 0, false
	}
	return int(stripped[loc[2]] - '0'), true
}

// matchMeal recognizes a meal heading by its pre-colon label ("- Breakfast:
// oatmeal") or a short colon-free line ("**Dinner**").
func matchMeal(label string, hasColon bool) (int, bool) {
	if hasColon {
		if len(label) > 32 {
			return 0, false
		}
	} else if len(label) > 24 {
		return 0, false
	}
	for i, stem := range mealStems {
		if strings.Contains(label, stem) {
			return i, true
		}
	}
	return 0, false
}

func matchSection(label string) headingKind {
	if label == "" || len(label) > 48 {
		return headingNone
	}
	switch {
	case strings.Contains(label, "nutritional requirement"), strings.Contains(label, "nutrition requirement"):
		return headingNutrition
	case strings.Contains(label, "calor"):
		return headingCalories
	case strings.Contains(label, "avoid"):
		return headingAvoid
	case strings.Contains(label, "hydration"), strings.Contains(label, "water"):
		return headingHydration
	case strings.Contains(label, "supplement"):
		return headingSupplements
	case strings.Contains(label, "recommended food"), strings.Contains(label, "guideline"), strings.Contains(label, "additional note"):
		return headingRecommended
	}
	return headingNone
}

// splitLabel lowercases the text before the first colon (the whole line when
// there is none) with bold/underscore trim, and keeps the inline remainder.
func splitLabel(stripped string) (label, inline string, hasColon bool) {
	colon := strings.Index(stripped, ":")
	if colon < 0 {
		return strings.ToLower(strings.Trim(stripped, "*_ \t")), "", false
	}
	label = strings.ToLower(strings.Trim(stripped[:colon], "*_ \t"))
	inline = strings.TrimSpace(strings.Trim(stripped[colon+1:], "*_ \t"))
	return label, inline, true
}

// stripOrnaments removes leading markdown decoration: heading markers, bullet
// markers, bold markers, and "1." style numbering.
func stripOrnaments(line string) string {
	s := strings.TrimLeft(line, "#-*• \t")
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = strings.TrimSpace(strings.TrimLeft(s[i+1:], "*• \t"))
	}
	return s
}

// bulletValue extracts the content of a bullet line. Bold lines ("**…") are
// not bullets even though they start with an asterisk.
func bulletValue(line string) (string, bool) {
	if strings.HasPrefix(line, "**") {
		return "", false
	}
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimLeft(line, "-*• ")), true
		}
	}
	return "", false
}
