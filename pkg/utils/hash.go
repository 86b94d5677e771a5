package utils

import (
	"crypto/md5"
	"fmt"
)

// BoundaryHash fingerprints a boundary payload for classification cache keys.
func BoundaryHash(payload []byte) string {
	hash := md5.Sum(payload)
	return fmt.Sprintf("%x", hash)
}
