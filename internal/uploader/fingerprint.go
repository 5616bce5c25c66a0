package uploader

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"kbridge/pkg/types"
)

// Fingerprint returns the lowercase hex SHA-256 digest of the file at path.
// Content is streamed through the hash so large documents never load into
// memory in full. Identical bytes always produce the same fingerprint no
// matter the path, name, or modification time.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &types.FileAccessError{Path: path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &types.FileAccessError{Path: path, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
