package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clibate/clibate/internal/runner"
)

func writeSpec(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestRunSuiteMaterializesFileSectionAndRunsTest(t *testing.T) {
	dir := t.TempDir()
	source := "file: \"greeting.txt\" ```\nhello\n```\n" +
		"test: \"reads the file\" {\n" +
		"    command: \"cat greeting.txt\"\n" +
		"    success: ```\n" +
		"hello\n" +
		"```\n" +
		"}\n"
	spec := writeSpec(t, dir, "suite.clibate", source)

	r := runner.New("", nil)
	result, err := runSuite(context.Background(), r, spec)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, 1, result.Passed)
	require.Equal(t, 0, result.Failed())
}

func TestRunSuiteCopySectionMaterializesMatchingFixtures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fixtures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures", "a.conf"), []byte("A"), 0o644))

	source := "copy: \"fixtures/*.conf\"\n" +
		"test: \"reads a copied fixture\" {\n" +
		"    command: \"cat fixtures/a.conf\"\n" +
		"    success: ```\n" +
		"A\n" +
		"```\n" +
		"}\n"
	spec := writeSpec(t, dir, "suite.clibate", source)

	r := runner.New("", nil)
	result, err := runSuite(context.Background(), r, spec)
	require.NoError(t, err)
	require.Equal(t, 1, result.Passed)
}

func TestRunSuiteFollowsIncludeChain(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "common.clibate", "file: \"greeting.txt\" ```\nhi\n```\n")
	source := "include: \"common.clibate\"\n" +
		"test: \"uses the included file\" {\n" +
		"    command: \"cat greeting.txt\"\n" +
		"    success: ```\n" +
		"hi\n" +
		"```\n" +
		"}\n"
	spec := writeSpec(t, dir, "suite.clibate", source)

	r := runner.New("", nil)
	result, err := runSuite(context.Background(), r, spec)
	require.NoError(t, err)
	require.Equal(t, 1, result.Passed)
}

func TestRunSuiteReportsFailureWithoutError(t *testing.T) {
	dir := t.TempDir()
	source := "test: \"expects wrong output\" {\n" +
		"    command: \"echo nope\"\n" +
		"    success: ```\n" +
		"yep\n" +
		"```\n" +
		"}\n"
	spec := writeSpec(t, dir, "suite.clibate", source)

	r := runner.New("", nil)
	result, err := runSuite(context.Background(), r, spec)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, 0, result.Passed)
	require.Equal(t, 1, result.Failed())
}

func TestResolveDocumentDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "a.clibate", "include: \"b.clibate\"\n")
	writeSpec(t, dir, "b.clibate", "include: \"a.clibate\"\n")

	_, err := resolveDocument(filepath.Join(dir, "a.clibate"), nil, map[string]bool{})
	require.Error(t, err)
}
