package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "2026-01-15", "abc1234")
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "statemapper 1.2.3")
	assert.Contains(t, out, "2026-01-15")
	assert.Contains(t, out, "abc1234")
	assert.Contains(t, out, "go version")
}

func TestVersionCommandShort(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "2026-01-15", "abc1234")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--short"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1.2.3\n", buf.String())
}
