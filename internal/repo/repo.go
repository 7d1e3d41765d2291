package repo

import (
	"crypto/sha256"
	"encoding/hex"

	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

// Tokens are stored as digests so a database leak does not hand out
// usable credentials.
func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
