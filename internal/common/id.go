package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a short random identifier for one harness run.
// It is embedded in uniquified emails, so it is lowercase hex only.
func NewRunID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// NewEntityID generates a unique identifier for stored entities
func NewEntityID() string {
	return uuid.New().String()
}
