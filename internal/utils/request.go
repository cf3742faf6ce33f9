package utils

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

// MaxIDLength bounds path identifiers.
const MaxIDLength = 128

var (
	ErrEmptyID   = errors.New("id is required")
	ErrIDTooLong = errors.New("id exceeds 128 characters")
	ErrIDInvalid = errors.New("id contains invalid characters")
)

// ExtractIDFromParams returns the {id} path value with any ".json" suffix
// removed.
func ExtractIDFromParams(r *http.Request) string {
	return strings.TrimSuffix(r.PathValue("id"), ".json")
}

// ValidateID rejects empty, overlong and non-printable identifiers.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	if len(id) > MaxIDLength {
		return ErrIDTooLong
	}
	for _, r := range id {
		if !unicode.IsPrint(r) || r == '/' {
			return ErrIDInvalid
		}
	}
	return nil
}

// ParseFloatParam parses a float query parameter. A missing parameter
// returns def with no error.
func ParseFloatParam(r *http.Request, name string, def float64) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, true, err
	}
	return v, true, nil
}
