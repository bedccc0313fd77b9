package suite_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/widgetprobe/internal/artifacts"
	"github.com/xkilldash9x/widgetprobe/internal/suite"
)

func TestCases_Registry(t *testing.T) {
	cases := suite.Cases()
	require.NotEmpty(t, cases)

	idPattern := regexp.MustCompile(`^[A-Z]+-\d+$`)
	seen := map[string]bool{}
	for _, c := range cases {
		assert.Regexp(t, idPattern, c.ID, "case id %q", c.ID)
		assert.False(t, seen[c.ID], "duplicate case id %q", c.ID)
		seen[c.ID] = true
		assert.NotEmpty(t, c.Title)
		assert.NotNil(t, c.Fn)
		assert.NotEqual(t, artifacts.CategoryOther, c.Category,
			"case %s must belong to a named category", c.ID)
	}
}

func TestCases_CoverEveryCategory(t *testing.T) {
	got := map[artifacts.Category]bool{}
	for _, c := range suite.Cases() {
		got[c.Category] = true
	}
	for _, want := range []artifacts.Category{
		artifacts.CategorySmoke,
		artifacts.CategoryFunctional,
		artifacts.CategoryVisual,
		artifacts.CategoryAccessibility,
	} {
		assert.True(t, got[want], "no case registered for category %s", want)
	}
}
