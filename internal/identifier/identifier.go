package identifier

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxLength is the longest identifier the store accepts. The strictest
// supported backend truncates anything longer, which would silently alias two
// distinct objects
const MaxLength = 63

// ErrInvalid is returned when a name cannot be used as an identifier without
// quoting
var ErrInvalid = errors.New("invalid identifier")

var (
	// SimpleIdentifierRegex matches identifiers that require no quotes
	SimpleIdentifierRegex = regexp.MustCompile("^[a-z_][a-z0-9_$]*$")
)

func IsSimple(val string) bool {
	return SimpleIdentifierRegex.MatchString(val)
}

// Validate returns an error unless val is a simple identifier of legal
// length. Schema, object, and column names all pass through here, so a bad
// name surfaces when it is defined rather than when its DDL is applied
func Validate(val string) error {
	if !IsSimple(val) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalid, val, SimpleIdentifierRegex)
	}
	if len(val) > MaxLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalid, val, MaxLength)
	}
	return nil
}
