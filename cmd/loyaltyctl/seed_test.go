package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTierCatalogue(t *testing.T) {
	tiers, err := loadTierCatalogue(strings.NewReader(`
tiers:
  - code: classic
    name: Classic
    min_score: 0
    max_score: 499
    sort_order: 1
  - code: Diamond
    name: Diamond
    min_score: 500
    max_score: 1000
    color: "#b9f2ff"
    sort_order: 2
`))
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "CLASSIC", tiers[0].Code)
	assert.Equal(t, "DIAMOND", tiers[1].Code)
	assert.Equal(t, 500, tiers[1].MinScore)
	assert.Equal(t, "#b9f2ff", tiers[1].Color)
}

func TestLoadTierCatalogueRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         "tiers: []\n",
		"duplicate":     "tiers:\n  - code: gold\n    name: Gold\n  - code: GOLD\n    name: Gold again\n",
		"unknown field": "tiers:\n  - code: gold\n    name: Gold\n    minimum: 5\n",
		"not yaml":      "tiers: [\n",
	}
	for name, input := range cases {
		_, err := loadTierCatalogue(strings.NewReader(input))
		assert.Error(t, err, name)
	}
}

func TestRequireBank(t *testing.T) {
	bankId = "  "
	assert.Error(t, requireBank())
	bankId = "BANK01"
	assert.NoError(t, requireBank())
	bankId = ""
}
