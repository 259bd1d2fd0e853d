package util

import (
	"strconv"
	"strings"
)

// ParseBool accepts the usual query spellings; anything else is false.
func ParseBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}
