package autogen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRegistry creates a test source directory with both registry files.
func newRegistry(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "all", "AllTests.java"), "class AllTests {}\n")
	writeFile(t, filepath.Join(dir, "failing", "FailingTests.java"), "class FailingTests {}\n")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestVerify_Unchanged(t *testing.T) {
	registry := newRegistry(t)

	snap, err := Take(registry, Options{TempRoot: t.TempDir()})
	require.NoError(t, err)
	tempDir := snap.Dir()
	assert.FileExists(t, filepath.Join(tempDir, "all", "AllTests.java"))

	require.NoError(t, snap.Verify())
	assert.NoDirExists(t, tempDir)
}

func TestVerify_OneByteDiffers(t *testing.T) {
	for _, rel := range DefaultFiles {
		t.Run(filepath.Base(rel), func(t *testing.T) {
			registry := newRegistry(t)

			snap, err := Take(registry, Options{TempRoot: t.TempDir()})
			require.NoError(t, err)
			tempDir := snap.Dir()

			path := filepath.Join(registry, rel)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			data[0] ^= 0x01
			require.NoError(t, os.WriteFile(path, data, 0644))

			err = snap.Verify()
			var oos *OutOfSyncError
			require.True(t, errors.As(err, &oos), "expected OutOfSyncError, got %v", err)
			assert.Equal(t, []string{rel}, oos.Files)
			assert.Contains(t, err.Error(), "regenerate with "+DefaultRegenCommand)
			assert.NoDirExists(t, tempDir)
		})
	}
}

func TestVerify_BothDiffer(t *testing.T) {
	registry := newRegistry(t)
	snap, err := Take(registry, Options{TempRoot: t.TempDir(), RegenCommand: "mx rtestgen"})
	require.NoError(t, err)

	writeFile(t, filepath.Join(registry, "all", "AllTests.java"), "changed")
	writeFile(t, filepath.Join(registry, "failing", "FailingTests.java"), "changed")

	err = snap.Verify()
	require.Error(t, err)
	assert.Equal(t, "AllTests.java and FailingTests.java are out of sync, regenerate with mx rtestgen", err.Error())
}

func TestVerify_LiveFileRemoved(t *testing.T) {
	registry := newRegistry(t)
	snap, err := Take(registry, Options{TempRoot: t.TempDir()})
	require.NoError(t, err)
	tempDir := snap.Dir()

	require.NoError(t, os.Remove(filepath.Join(registry, "failing", "FailingTests.java")))

	err = snap.Verify()
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "expected IOError, got %v", err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoDirExists(t, tempDir)
}

func TestTake_MissingRegistry(t *testing.T) {
	registry := t.TempDir()
	writeFile(t, filepath.Join(registry, "all", "AllTests.java"), "x")
	tempRoot := t.TempDir()

	snap, err := Take(registry, Options{TempRoot: tempRoot})
	assert.Nil(t, snap)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary directory should be removed after a failed snapshot")
}

func TestTake_UniqueDirectories(t *testing.T) {
	registry := newRegistry(t)
	root := t.TempDir()

	a, err := Take(registry, Options{TempRoot: root})
	require.NoError(t, err)
	b, err := Take(registry, Options{TempRoot: root})
	require.NoError(t, err)
	defer a.Discard()
	defer b.Discard()

	assert.NotEqual(t, a.Dir(), b.Dir())
}

func TestDiscard_Idempotent(t *testing.T) {
	snap, err := Take(newRegistry(t), Options{TempRoot: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, snap.Discard())
	require.NoError(t, snap.Discard())
	assert.NoDirExists(t, snap.Dir())
	assert.Error(t, snap.Verify())
}

func TestVerify_PreservesEvidence(t *testing.T) {
	registry := newRegistry(t)
	evidence := t.TempDir()
	opts := Options{TempRoot: t.TempDir(), EvidenceDir: evidence}
	opts.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	snap, err := Take(registry, opts)
	require.NoError(t, err)
	tempDir := snap.Dir()

	writeFile(t, filepath.Join(registry, "all", "AllTests.java"), "regenerated")

	err = snap.Verify()
	var oos *OutOfSyncError
	require.True(t, errors.As(err, &oos))

	want := filepath.Join(evidence, "20260102T030405.000Z")
	assert.Equal(t, want, oos.Evidence)
	data, err := os.ReadFile(filepath.Join(want, "all", "AllTests.java"))
	require.NoError(t, err)
	assert.Equal(t, "class AllTests {}\n", string(data))
	assert.NoDirExists(t, tempDir)
}

func TestVerify_RecordsChanges(t *testing.T) {
	registry := newRegistry(t)

	snap, err := Take(registry, Options{TempRoot: t.TempDir(), Watch: true})
	require.NoError(t, err)

	target := filepath.Join(registry, "all", "AllTests.java")
	writeFile(t, target, "rewritten by testgen")
	writeFile(t, filepath.Join(registry, "all", "Unrelated.java"), "ignored")

	assert.Eventually(t, func() bool {
		return len(snap.Changes()) > 0
	}, 5*time.Second, 20*time.Millisecond)

	err = snap.Verify()
	var oos *OutOfSyncError
	require.True(t, errors.As(err, &oos))
	require.NotEmpty(t, oos.Changes)
	for _, c := range oos.Changes {
		assert.Equal(t, target, filepath.Clean(c.Path))
	}
}
