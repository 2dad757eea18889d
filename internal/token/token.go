package token

// Package token generates the opaque identifiers used for storage file
// names and external file references. Tokens come from crypto/rand only:
// they double as unguessable access identifiers, so a predictable source
// is never acceptable here.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// FileNameBytes is the entropy used for storage file names. 16 random
// bytes make collisions between concurrent writers negligible without
// any coordination.
const FileNameBytes = 16

// Generate returns n cryptographically-random bytes hex-encoded.
func Generate(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// extensionByType maps each allow-listed content type to its canonical
// extension. The stored extension always comes from this table, never
// from the client-supplied file name, which closes the evil.jpg.php gap.
var extensionByType = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

// ExtensionForType returns the normalized extension for a validated
// content type.
func ExtensionForType(contentType string) (string, bool) {
	ext, ok := extensionByType[contentType]
	return ext, ok
}

// SecureFileName builds a storage file name from a fresh random token and
// the extension normalized from the validated content type. No part of
// the name derives from user input.
func SecureFileName(contentType string) (string, error) {
	ext, ok := ExtensionForType(contentType)
	if !ok {
		return "", fmt.Errorf("no normalized extension for content type %q", contentType)
	}
	tok, err := Generate(FileNameBytes)
	if err != nil {
		return "", err
	}
	return tok + "." + ext, nil
}
