package uploader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbridge/pkg/types"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// TestFingerprint_KnownDigest verifies the digest against a fixed vector.
func TestFingerprint_KnownDigest(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", []byte("hello world"))

	fp, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", fp)
}

// TestFingerprint_IgnoresNameAndLocation verifies identical bytes hash the
// same regardless of where they live.
func TestFingerprint_IgnoresNameAndLocation(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", []byte("same bytes"))
	b := writeFile(t, dir, filepath.Join("nested", "b.pdf"), []byte("same bytes"))

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

// TestFingerprint_SingleByteChange verifies any content change flips the
// fingerprint.
func TestFingerprint_SingleByteChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pdf", []byte("content v1"))

	before, err := Fingerprint(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("content v2"), 0o644))

	after, err := Fingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFingerprint_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	_, err := Fingerprint(missing)

	var accessErr *types.FileAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, missing, accessErr.Path)
}
