package utils

import (
	"encoding/base64"
	"fmt"
	"io"
)

// RandomString reads n bytes from src and returns them base64url encoded without padding.
func RandomString(src io.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", fmt.Errorf("reading %d random bytes: %w", n, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
