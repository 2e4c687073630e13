package ir

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a fresh 12-character hex node identifier.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:6])
}
