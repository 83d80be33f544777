package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a random hex id, optionally namespaced as "<prefix>-<hex>".
func GenerateID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// NewToken returns an unguessable value suitable for lock ownership.
func NewToken() string {
	return uuid.NewString()
}
