package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Of returns the digest of the JSON encoding of v. Map keys are encoded in
// sorted order, so equal values always yield equal digests.
func Of(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("checksum: encode: %w", err)
	}
	return Sum(b), nil
}
