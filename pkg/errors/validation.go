package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits for user-supplied identifiers and search input.
const (
	MaxIDLength      = 64
	MaxKeywordLength = 100
)

// ValidateCompanyID validates a business registration number used as a node id.
//
// The rules are conservative:
//   - No empty ids
//   - No control characters or whitespace
//   - No path separators (ids are embedded in URLs and cache keys)
//   - Maximum length of MaxIDLength bytes
func ValidateCompanyID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "company id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidID, "company id too long (max %d characters)", MaxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidID, "company id contains invalid characters")
		}
	}
	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidID, "company id cannot contain path separators")
	}
	return nil
}

// ValidateKeyword validates a free-text search keyword.
// Short keywords are valid; the index decides whether they match anything.
func ValidateKeyword(keyword string) error {
	if !utf8.ValidString(keyword) {
		return New(ErrCodeInvalidKeyword, "keyword is not valid UTF-8")
	}
	if utf8.RuneCountInString(keyword) > MaxKeywordLength {
		return New(ErrCodeInvalidKeyword, "keyword too long (max %d characters)", MaxKeywordLength)
	}
	for _, r := range keyword {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKeyword, "keyword contains invalid control characters")
		}
	}
	return nil
}
