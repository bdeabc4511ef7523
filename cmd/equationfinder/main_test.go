package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearFit = `
a*x + b

with input
x

with data
0 3
1 5
2 7
3 9

with search metric
RSS
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecode(t *testing.T) {
	out, err := execute(t, "decode", "--inputs", "x", "--head", "2", "+", "*", "p1", "x", "p0")
	require.NoError(t, err)
	assert.Equal(t, "((x*p0)+p1)\n", out)
}

func TestDecode_Truncated(t *testing.T) {
	_, err := execute(t, "decode", "--inputs", "x", "--head", "2", "+", "*", "x")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestSearch_FitsNamedExpression(t *testing.T) {
	path := writeFile(t, "linear.txt", linearFit)

	out, err := execute(t, "search", path, "--format", "json", "--workers", "0", "--seed", "3")
	require.NoError(t, err)

	var r struct {
		Found      bool
		Expression string
		Parameters []struct {
			Name  string
			Value float64
		}
		Seed int64
	}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.True(t, r.Found)
	assert.Equal(t, "a*x + b", r.Expression)
	require.Len(t, r.Parameters, 2)
	assert.Equal(t, "a", r.Parameters[0].Name)
	assert.InDelta(t, 2, r.Parameters[0].Value, 1e-2)
	assert.InDelta(t, 3, r.Parameters[1].Value, 1e-2)
	assert.Equal(t, int64(3), r.Seed)
}

func TestFit_ExpressionArgument(t *testing.T) {
	path := writeFile(t, "linear.txt", linearFit)

	out, err := execute(t, "fit", path, "p0*x", "--format", "text", "--workers", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "expression:  p0*x\n"))
}

func TestSearch_ConfigFile(t *testing.T) {
	problemPath := writeFile(t, "linear.txt", linearFit)
	configPath := writeFile(t, "run.toml", "[simulation]\nmating_ratio = 3.0\n")

	_, err := execute(t, "search", problemPath, "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MatingRatio")
}
