package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidInput is returned for missing, malformed or unsupported request
// input. Input failures happen before any network call.
var ErrInvalidInput = errors.New("invalid input")

type requestInput struct {
	Pair *string `json:"pair"`
}

// ParseInput interprets raw request bytes as UTF-8: either a bare BASE-QUOTE
// identifier or a JSON object with a "pair" field (a bare JSON string is
// also accepted). The result is uppercased and checked against the registry.
func ParseInput(raw []byte, registry Registry) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", ErrInvalidInput)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("%w: pair required", ErrInvalidInput)
	}

	pair := trimmed
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "\"") {
		var parsed requestInput
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Pair != nil {
			pair = *parsed.Pair
		} else {
			var bare string
			if err := json.Unmarshal([]byte(trimmed), &bare); err == nil {
				pair = bare
			} else {
				return "", fmt.Errorf("%w: malformed JSON input", ErrInvalidInput)
			}
		}
	}

	pair = strings.ToUpper(strings.TrimSpace(pair))
	if _, ok := registry[pair]; !ok {
		return "", fmt.Errorf("%w: unsupported pair %s", ErrInvalidInput, pair)
	}
	return pair, nil
}
