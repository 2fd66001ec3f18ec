package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCategoryThroughFmtWrap(t *testing.T) {
	base := errors.New("llm unreachable")
	err := fmt.Errorf("tier3: %w", Wrap(base, CategoryClassification, "llm_call"))

	assert.Equal(t, CategoryClassification, CategoryOf(err))
	assert.Equal(t, "llm_call", CodeOf(err))
	assert.True(t, Is(err, CategoryClassification))
	assert.ErrorIs(t, err, base)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CategorySynthesis, "x"))
	assert.Equal(t, Category(""), CategoryOf(errors.New("plain")))
	assert.False(t, Is(nil, CategorySynthesis))
}
