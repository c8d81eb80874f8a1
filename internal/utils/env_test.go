package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_SkipsMissingAndKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MEMORIA_TEST_A=from-file\nMEMORIA_TEST_B=from-file\n"), 0o600))

	t.Setenv("MEMORIA_TEST_B", "from-env")
	t.Setenv("MEMORIA_TEST_A", "")
	os.Unsetenv("MEMORIA_TEST_A")

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("MEMORIA_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("MEMORIA_TEST_B"))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "nope")))
}

func TestFindProjectRoot_WalksUpToGoMod(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example\n"), 0o600))
	nested := filepath.Join(root, "internal", "config")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	got, err := FindProjectRoot()
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestLoadEnv_DefaultsToProjectRoot(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("MEMORIA_TEST_ROOT=found\n"), 0o600))
	nested := filepath.Join(root, "cmd")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	t.Setenv("MEMORIA_TEST_ROOT", "")
	os.Unsetenv("MEMORIA_TEST_ROOT")

	require.NoError(t, LoadEnv())
	assert.Equal(t, "found", os.Getenv("MEMORIA_TEST_ROOT"))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
