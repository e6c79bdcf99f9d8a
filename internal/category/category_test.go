package category_test

import (
	"testing"

	"ms-admissions/internal/category"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExactLabels(t *testing.T) {
	cases := map[string]category.Category{
		"Individual Entry":     category.Individual,
		"Entry + Meal Package": category.Meal,
		"Family Pack":          category.Family,
		"Group Package":        category.Group,
	}

	for label, want := range cases {
		got, ok := category.Normalize(label)
		assert.True(t, ok, "label %q should map", label)
		assert.Equal(t, want, got)
	}
}

func TestNormalizeFallbackHandlesDriftedLabels(t *testing.T) {
	cases := map[string]category.Category{
		"individual entry":     category.Individual,
		"Entry+Meal Package":   category.Meal,
		"entry + meal package": category.Meal,
		"FAMILY PACK":          category.Family,
		"family  pack":         category.Family,
		"grouppackage":         category.Group,
		" Group Package ":      category.Group,
	}

	for label, want := range cases {
		got, ok := category.Normalize(label)
		assert.True(t, ok, "label %q should map via fallback", label)
		assert.Equal(t, want, got)
	}
}

func TestNormalizeUnmapped(t *testing.T) {
	for _, label := range []string{"", "VIP Entry", "Season Pass", "meal package deluxe"} {
		_, ok := category.Normalize(label)
		assert.False(t, ok, "label %q should not map", label)
	}
}
