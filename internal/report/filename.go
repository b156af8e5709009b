package report

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"unicode/utf8"
)

// MaxFileNameLength bounds the namer-derived part of a report file name
const MaxFileNameLength = 200

var (
	// Path separators, invalid filesystem characters and control characters
	invalidCharsPattern = regexp.MustCompile(`[<>:"|?*/\\\x00-\x1f]+`)

	// Leading/trailing dots and spaces (Windows restriction)
	trimPattern = regexp.MustCompile(`^[\s.]+|[\s.]+$`)
)

// SanitizeFileName makes a file namer result usable as a single path
// component inside the report directory.
func SanitizeFileName(name string) string {
	name = invalidCharsPattern.ReplaceAllString(name, "_")
	name = trimPattern.ReplaceAllString(name, "")
	if name == "" {
		return "_empty_"
	}

	if len(name) > MaxFileNameLength {
		// Keep a readable prefix and disambiguate with a hash suffix
		hash := sha256.Sum256([]byte(name))
		cut := MaxFileNameLength - 9
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + "_" + hex.EncodeToString(hash[:4])
	}
	return name
}
