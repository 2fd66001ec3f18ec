package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-intentflow/pkg/models"
)

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	c, ok := r.Category(GmailRecent)
	require.True(t, ok)
	assert.Equal(t, models.CategoryGmail, c)

	c, ok = r.Category(DriveRead)
	require.True(t, ok)
	assert.Equal(t, models.CategoryDrive, c)
	_, ok = r.Category("fax_send")
	assert.False(t, ok)
	assert.Len(t, r.List(), len(DefaultCatalog()))
	assert.Contains(t, r.Describe(), "web_search [web]")
}

func TestRegistryValidate(t *testing.T) {
	r := NewDefaultRegistry()

	assert.NoError(t, r.Validate(GmailSearch, map[string]any{"query": "from:john budget"}))
	assert.NoError(t, r.Validate(GmailRecent, nil))
	assert.Error(t, r.Validate(GmailSearch, map[string]any{}), "query is required")
	assert.Error(t, r.Validate(GmailRead, map[string]any{"message_id": "abc", "extra": true}))
	assert.Error(t, r.Validate("nope", nil))
}

func TestRegisterRejectsBadDefinitions(t *testing.T) {
	_, err := NewRegistry(Definition{Name: "x", Category: "fax"})
	assert.Error(t, err)

	_, err = NewRegistry(Definition{Category: models.CategoryWeb})
	assert.Error(t, err)
}

func TestDefaultParams(t *testing.T) {
	r := NewDefaultRegistry()

	p := r.DefaultParams(GmailSearch, "  budget from john ")
	assert.Equal(t, "budget from john", p["query"])
	assert.Equal(t, 10, p["max_results"])
	require.NoError(t, r.Validate(GmailSearch, p))

	p = r.DefaultParams(GmailRecent, "show me my recent emails")
	_, hasQuery := p["query"]
	assert.False(t, hasQuery)

	// defaults must not leak between calls
	p["max_results"] = 1
	assert.Equal(t, 10, r.DefaultParams(GmailRecent, "")["max_results"])
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher(NewDefaultRegistry())
	d.Handle(GmailRecent, func(ctx context.Context, params map[string]any) (models.ToolResult, error) {
		return models.ToolResult{Success: true, Text: "3 emails"}, nil
	})
	d.Handle(DriveRecent, func(ctx context.Context, params map[string]any) (models.ToolResult, error) {
		return models.ToolResult{}, errors.New("token expired")
	})
	d.Handle(CalendarUpcoming, func(ctx context.Context, params map[string]any) (models.ToolResult, error) {
		panic("boom")
	})
	ctx := context.Background()

	ok := d.Call(ctx, GmailRecent, nil)
	assert.True(t, ok.Success)
	assert.Equal(t, GmailRecent, ok.Tool)

	failed := d.Call(ctx, DriveRecent, nil)
	assert.False(t, failed.Success)
	assert.Equal(t, "token expired", failed.Error)

	panicked := d.Call(ctx, CalendarUpcoming, nil)
	assert.False(t, panicked.Success)
	assert.Equal(t, CalendarUpcoming, panicked.Tool)

	missing := d.Call(ctx, WebSearch, map[string]any{"query": "x"})
	assert.False(t, missing.Success)

	invalid := d.Call(ctx, GmailRecent, map[string]any{"max_results": 500})
	assert.False(t, invalid.Success)
}
