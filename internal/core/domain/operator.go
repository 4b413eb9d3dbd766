package domain

import (
	"errors"
	"regexp"
	"strings"
)

// ErrOperatorID is returned for identifiers that cannot name a chat user.
var ErrOperatorID = errors.New("operator identifier must be a @handle or a numeric id")

var operatorIDRe = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// NormalizeOperatorID turns "@Alice", "alice" and " @alice " into "alice".
// Numeric chat ids pass through unchanged.
func NormalizeOperatorID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "@")
	id = strings.ToLower(id)
	if !operatorIDRe.MatchString(id) {
		return "", ErrOperatorID
	}
	return id, nil
}

// IsNumericID reports whether id is a platform numeric user id.
func IsNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DisplayOperator renders a normalized id the way users type it.
func DisplayOperator(id string) string {
	if id == "" || IsNumericID(id) {
		return id
	}
	return "@" + id
}
