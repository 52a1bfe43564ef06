package testutil

import (
	"strings"

	"github.com/google/uuid"
)

func uniqueEmail() string {
	return "user-" + shortID() + "@example.com"
}

func uniqueCode() string {
	return "ref-" + shortID()
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}
