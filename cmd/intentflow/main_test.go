package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-intentflow/internal/config"
	"go-intentflow/pkg/models"
)

func defaults() (config.Config, error) {
	return config.Default(), nil
}

func TestParseTurns(t *testing.T) {
	history, err := parseTurns([]string{"user: show my emails", "assistant: found 3 emails: from John"})
	require.NoError(t, err)
	assert.Equal(t, []models.Message{
		{Role: "user", Content: "show my emails"},
		{Role: "assistant", Content: "found 3 emails: from John"},
	}, history)

	_, err = parseTurns([]string{"no separator"})
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newClassifyCmd(defaults)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"Show", "me", "my", "recent", "emails"})
	require.NoError(t, cmd.Execute())

	var c models.Classification
	require.NoError(t, json.Unmarshal(out.Bytes(), &c))
	assert.Equal(t, models.PersonalData, c.Kind)
	assert.Equal(t, 1, c.TierUsed)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intentflow.yaml")

	cmd := newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)

	cmd = newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", path})
	assert.Error(t, cmd.Execute(), "existing files are kept without --force")
}
