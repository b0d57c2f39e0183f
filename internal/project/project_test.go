package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultManifest)
	content := dedent.Dedent(`
		name = "hello"
		main = "main.draco"
		output = "hello.out"
		verbose = true

		[[references]]
		name = "System.Runtime"
		public_key_token = "b03f5f7f11d50a3a"
	`)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Name)
	assert.Equal(t, "main.draco", m.Main)
	assert.Equal(t, "hello.out", m.Output)
	assert.True(t, m.Verbose)
	require.Len(t, m.References, 1)
	assert.Equal(t, "System.Runtime", m.References[0].Name)
	assert.Equal(t, "b03f5f7f11d50a3a", m.References[0].PublicKeyToken)
}

func TestLoadIfPresentMissingFile(t *testing.T) {
	m, err := LoadIfPresent(filepath.Join(t.TempDir(), DefaultManifest))
	require.NoError(t, err)
	assert.Equal(t, &Manifest{}, m)
}

func TestLoadRejectsBadToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultManifest)
	require.NoError(t, os.WriteFile(path, []byte("name = [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing project manifest")
}
