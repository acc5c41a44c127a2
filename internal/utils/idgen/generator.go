package idgen

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// GenerateSecureID returns an identifier of the form "<prefix>_<random>", where
// the random part is length characters of lowercase base32 from crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("idgen: length must be positive, got %d", length)
	}

	// base32 expands 5 bytes to 8 characters, over-read and trim.
	raw := make([]byte, (length*5)/8+1)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("idgen: read random bytes: %w", err)
	}

	encoded := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw))
	if len(encoded) < length {
		return "", fmt.Errorf("idgen: encoded length %d shorter than requested %d", len(encoded), length)
	}

	return fmt.Sprintf("%s_%s", prefix, encoded[:length]), nil
}
