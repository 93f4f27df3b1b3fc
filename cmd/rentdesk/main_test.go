package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "rentdesk version ")
}

func TestStepsCommand(t *testing.T) {
	out := execute(t, "steps", "vehicle", "--format", "yaml")
	assert.Contains(t, out, "name: vehicle")
	assert.Contains(t, out, "id: identity")
	assert.Contains(t, out, "key: plateNumber")

	out = execute(t, "steps", "contract", "--format", "mermaid")
	assert.Contains(t, out, "graph LR")
	assert.Contains(t, out, "-- submit --> submit")
}
