package models

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID with the given prefix
// Example: GenerateID("scan") -> "scan:uuid-here"
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s:%s", prefix, uuid.New().String())
}

// NewRef generates a fresh reference for a record of the given kind.
// Refs use time-ordered UUIDs so the store iterates records in creation order.
func NewRef(kind Kind) Ref {
	return Ref(fmt.Sprintf("%s:%s", kind.Prefix(), uuid.Must(uuid.NewV7()).String()))
}

// IntPtr returns a pointer to v, for optional integer columns.
func IntPtr(v int) *int {
	return &v
}
