package hospitalsearch

import (
	"fmt"
	"strings"
)

const premiumQueryNames = "AIIMS Apollo Fortis Max Medanta"

// BuildQueries turns a strategy into an ordered, deduplicated query list,
// capped at max. Priority order: specialty queries, then the top two
// conditions, then an emergency query for urgent cases, then the premium
// institution query. An empty condition set short-circuits to a single
// generic query.
func BuildQueries(strategy SearchStrategy, max int) []string {
	if max <= 0 {
		max = DefaultMaxQueries
	}
	location := strategy.Location
	if location == "" {
		location = DefaultLocation
	}

	if len(strategy.Conditions) == 0 {
		return []string{fmt.Sprintf("best hospitals %s", location)}
	}

	queries := []string{}
	seen := map[string]struct{}{}
	add := func(q string) {
		if len(queries) >= max {
			return
		}
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	for _, specialty := range strategy.Specialties {
		add(fmt.Sprintf("best %s hospitals %s", specialty, location))
	}
	for i, condition := range strategy.Conditions {
		if i == 2 {
			break
		}
		add(fmt.Sprintf("best hospitals for %s %s", stripPunctuation(condition), location))
	}
	if strategy.Urgency == UrgencyUrgent {
		add(fmt.Sprintf("best emergency hospitals %s", location))
	}
	add(fmt.Sprintf("%s %s", premiumQueryNames, location))

	return queries
}

func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
