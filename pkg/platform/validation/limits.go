// Package validation holds the size limits enforced at the HTTP boundary and
// small helpers that turn a breach into a validation_failed error.
package validation

import (
	"strings"
	"unicode/utf8"

	dErrors "orbit/pkg/domain-errors"
)

const (
	// MaxWebhookBodySize bounds raw billing webhook payloads.
	MaxWebhookBodySize = 512 << 10

	MaxFiles           = 10
	MaxFileSize        = 10 << 20
	MaxMultipartMemory = 32 << 20

	DefaultPageLimit = 10
	MaxPageLimit     = 100

	MaxTags              = 20
	MaxTagLength         = 50
	MaxNameLength        = 200
	MaxSearchLength      = 200
	MaxAddressLength     = 500
	MaxDescriptionLength = 5000
)

func CheckSliceCount(field string, count, max int) error {
	if count <= max {
		return nil
	}
	return dErrors.Newf(dErrors.CodeValidation, "too many %s: max %d allowed", field, max)
}

// CheckStringLength counts bytes, matching the varchar limits in the schema.
func CheckStringLength(field, value string, max int) error {
	if len(value) <= max {
		return nil
	}
	return dErrors.Newf(dErrors.CodeValidation, "%s exceeds max length of %d", field, max)
}

func CheckEachStringLength(field string, values []string, max int) error {
	for _, v := range values {
		if err := CheckStringLength(field, v, max); err != nil {
			return err
		}
	}
	return nil
}

// SearchTerm trims a free-text query and cuts it to MaxSearchLength bytes
// without splitting a multi-byte character.
func SearchTerm(raw string) string {
	term := strings.TrimSpace(raw)
	if len(term) <= MaxSearchLength {
		return term
	}
	cut := MaxSearchLength
	for cut > 0 && !utf8.RuneStart(term[cut]) {
		cut--
	}
	return term[:cut]
}
