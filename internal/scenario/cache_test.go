package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, path, name string) {
	t.Helper()
	body := "name: " + name + "\nsteps:\n  - queue: {kind: game}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestCache_ServesUnchangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	writeScenario(t, path, "first")

	c := NewCache(time.Minute)
	a, err := c.Load(path)
	require.NoError(t, err)
	b, err := c.Load(path)
	require.NoError(t, err)

	require.Same(t, a, b)
	require.Equal(t, uint64(1), c.Hits())
	require.Equal(t, uint64(1), c.Misses())
	require.Equal(t, 1, c.Len())
}

func TestCache_ReparsesChangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	writeScenario(t, path, "first")

	c := NewCache(time.Minute)
	a, err := c.Load(path)
	require.NoError(t, err)

	writeScenario(t, path, "second, longer")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	b, err := c.Load(path)
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.Equal(t, "second, longer", b.Name)
	require.Equal(t, uint64(2), c.Misses())
}

func TestCache_Flush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	writeScenario(t, path, "first")

	c := NewCache(0)
	_, err := c.LoadAll([]string{path})
	require.NoError(t, err)
	c.Flush()
	require.Zero(t, c.Len())

	_, err = c.Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(2), c.Misses())
}

func TestCache_MissingFile(t *testing.T) {
	c := NewCache(time.Minute)
	_, err := c.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
