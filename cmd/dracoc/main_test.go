package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.draco")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompileCleanSource(t *testing.T) {
	path := writeSource(t, "func main() { var x: int32 = 1 + 2 * 3; }")
	result, err := compile([]string{path})
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
	assert.Nil(t, reportDiagnostics(result))
}

func TestCompileReportsDiagnosticsExitCode(t *testing.T) {
	path := writeSource(t, `func main() { return 1 + "x"; }`)
	result, err := compile([]string{path})
	require.NoError(t, err)
	require.True(t, result.HasErrors())

	err = reportDiagnostics(result)
	require.Error(t, err)
	assert.Equal(t, exitDiagnostics, int(err.(exitError)))
}

func TestCompileMissingFileIsDriverFailure(t *testing.T) {
	_, err := compile([]string{filepath.Join(t.TempDir(), "absent.draco")})
	assert.Error(t, err)
}

func TestManifestReferencesFlowIntoConfig(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.draco")
	require.NoError(t, os.WriteFile(srcPath, []byte("func main() {}"), 0o644))
	manifest := "[[references]]\nname = \"System.Runtime\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draco.toml"), []byte(manifest), 0o644))

	_, _, m, err := loadInput([]string{srcPath})
	require.NoError(t, err)
	require.Len(t, m.References, 1)
	assert.Equal(t, "System.Runtime", m.References[0].Name)
}
