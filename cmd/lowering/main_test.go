package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCompilePrintsTreeAndDisassembly(t *testing.T) {
	out, err := run(t, "compile", "-d", "testdata/caller.json")
	require.NoError(t, err)
	assert.Contains(t, out, "key: 0x")
	assert.Contains(t, out, "caller OPTIMIZED_FUNCTION")
	assert.Contains(t, out, "safepoints")
	assert.Contains(t, out, "<callee>")
	assert.Contains(t, strings.ToLower(out), "call ")
}

func TestCompileJSONSummary(t *testing.T) {
	out, err := run(t, "compile", "--json", "testdata/caller.json")
	require.NoError(t, err)

	var s codeSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "caller", s.Name)
	assert.Equal(t, "OPTIMIZED_FUNCTION", s.Kind)
	assert.Len(t, s.Safepoints, 1)
	assert.Len(t, s.DeoptEntries, 2)
	assert.Contains(t, s.Literals, "2.5")
	require.Len(t, s.Relocations, 2)
	assert.Contains(t, s.Relocations[0], "<callee>")
}

func TestCompileWithConfig(t *testing.T) {
	config := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"code_comments": true}`), 0o644))

	out, err := run(t, "compile", "--config", config, "testdata/caller.json")
	require.NoError(t, err)
	assert.Contains(t, out, "-- B0 start --")
	assert.Contains(t, out, "-- caller.js:")

	plain, err := run(t, "compile", "testdata/caller.json")
	require.NoError(t, err)
	assert.NotContains(t, plain, "-- B0 start --")
	assert.NotEqual(t, firstLine(out), firstLine(plain), "options change the cache key")
}

func TestCacheRoundTrip(t *testing.T) {
	cache := t.TempDir()

	first, err := run(t, "compile", "--json", "--cache", cache, "testdata/caller.json")
	require.NoError(t, err)
	second, err := run(t, "compile", "--json", "--cache", cache, "testdata/caller.json")
	require.NoError(t, err)
	assert.JSONEq(t, first, second, "cached code matches a fresh compile")

	var s codeSummary
	require.NoError(t, json.Unmarshal([]byte(first), &s))

	list, err := run(t, "cache", "list", "--cache", cache)
	require.NoError(t, err)
	assert.Contains(t, list, s.Key)
	assert.Contains(t, list, "caller")

	out, err := run(t, "inspect", "--cache", cache, s.Key)
	require.NoError(t, err)
	assert.Contains(t, out, "caller OPTIMIZED_FUNCTION")

	_, err = run(t, "cache", "delete", "--cache", cache, s.Key)
	require.NoError(t, err)
	list, err = run(t, "cache", "list", "--cache", cache)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(list))

	_, err = run(t, "inspect", "--cache", cache, s.Key)
	assert.ErrorContains(t, err, "no code object")
}

func TestDiff(t *testing.T) {
	out, err := run(t, "diff", "testdata/caller.json", "testdata/caller.json")
	require.NoError(t, err)
	assert.Contains(t, out, "identical")

	out, err = run(t, "diff", "testdata/caller.json", "testdata/caller_sub.json")
	assert.ErrorIs(t, err, errDifferent)
	assert.Contains(t, out, "disassembly")
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "compile", "testdata/caller.json")
	assert.Error(t, err)

	_, err = run(t, "compile", "testdata/missing.json")
	assert.ErrorContains(t, err, "failed to read unit")

	_, err = run(t, "inspect", "--cache", t.TempDir(), "0x12")
	assert.Error(t, err)

	_, err = run(t, "compile")
	assert.Error(t, err)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
