package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	out, err := Parse("tools {{range $i, $c := .}}{{if $i}}, {{end}}{{$c}}{{end}} are off", []string{"gmail", "drive"})
	require.NoError(t, err)
	assert.Equal(t, "tools gmail, drive are off", out)

	again, err := Parse("tools {{range $i, $c := .}}{{if $i}}, {{end}}{{$c}}{{end}} are off", []string{"web"})
	require.NoError(t, err)
	assert.Equal(t, "tools web are off", again)

	_, err = Parse("{{.Missing", nil)
	assert.Error(t, err)
}
