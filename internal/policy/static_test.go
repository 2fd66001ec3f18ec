package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-intentflow/pkg/models"
)

func TestStatic(t *testing.T) {
	strict := models.UsagePolicy{
		AutoToolUsage:     true,
		Approach:          models.Conservative,
		MaxToolsPerQuery:  1,
		EnabledCategories: []models.Category{models.CategoryGmail},
	}
	s, err := NewStatic(models.DefaultPolicy(), map[string]models.UsagePolicy{"alice": strict})
	require.NoError(t, err)

	p, err := s.Policy(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, strict, p)

	p, err = s.Policy(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPolicy(), p)

	assert.Error(t, s.Set("carol", models.UsagePolicy{Approach: "reckless"}))

	_, err = NewStatic(models.UsagePolicy{Approach: models.Balanced, EnabledCategories: []models.Category{"fax"}}, nil)
	assert.Error(t, err)
}
