package category

import "strings"

// Category is one of the four canonical ticket classes used for reporting.
type Category string

const (
	Individual Category = "individual"
	Meal       Category = "meal"
	Family     Category = "family"
	Group      Category = "group"
)

// All lists the canonical categories in their reporting order.
var All = []Category{Individual, Meal, Family, Group}

// labelTable maps the exact booking-form labels to categories.
var labelTable = map[string]Category{
	"Individual Entry":     Individual,
	"Entry + Meal Package": Meal,
	"Family Pack":          Family,
	"Group Package":        Group,
}

// collapsedTable holds the same keys lowercased with whitespace and '+'
// stripped. Upstream label text has drifted over time ("family pack",
// "Entry+Meal Package", ...) and the fallback keeps those bookings
// attributable.
var collapsedTable = func() map[string]Category {
	m := make(map[string]Category, len(labelTable))
	for label, cat := range labelTable {
		m[collapse(label)] = cat
	}
	return m
}()

func collapse(label string) string {
	label = strings.ToLower(label)
	label = strings.ReplaceAll(label, "+", "")
	return strings.Join(strings.Fields(label), "")
}

// Normalize maps a booking's free-text ticket-type label to a canonical
// category. The exact table is tried first, then the collapsed fallback.
// ok is false when neither matches; the caller must keep the booking's
// totals and skip only the per-category increment.
func Normalize(label string) (Category, bool) {
	if cat, found := labelTable[label]; found {
		return cat, true
	}
	if cat, found := collapsedTable[collapse(label)]; found {
		return cat, true
	}
	return "", false
}
