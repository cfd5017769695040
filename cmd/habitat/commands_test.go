package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateDefaults(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "world: 31x20 square")
	assert.Contains(t, out, "species: rabbit (herbivore) x12")
	assert.Contains(t, out, `tree: root "behaviour"`)
}

func TestValidateRejectsUnknownFunction(t *testing.T) {
	tree := writeFile(t, "tree.yaml", `
root: act
nodes:
  act: {type: CallFunction, function: teleport}
`)
	_, err := execute(t, "validate", "--tree", tree)
	assert.Error(t, err)
}

func TestValidateRejectsBadScenario(t *testing.T) {
	scenario := writeFile(t, "scenario.yaml", `
world:
  topology: spiral
`)
	_, err := execute(t, "validate", "-c", scenario)
	assert.Error(t, err)
}

func TestRunWritesStats(t *testing.T) {
	scenario := writeFile(t, "scenario.yaml", `
sim:
  tick_interval: 1ms
  stats_every: 1
`)
	stats := filepath.Join(t.TempDir(), "stats.csv")
	out, err := execute(t, "run", "-c", scenario, "--ticks", "3", "--seed", "2", "--log-level", "error", "--stats", stats)
	require.NoError(t, err)
	assert.Contains(t, out, "ticks=3")

	data, err := os.ReadFile(stats)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "tick,sim_time,alive"))
	assert.True(t, strings.HasPrefix(lines[3], "3,"))
}
