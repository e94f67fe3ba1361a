// Package pattern implements the Pattern type used by inline diagnostic
// expectations and file-wide error-pattern annotations: a substring or
// regex match tested against a decoded diagnostic's message text.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is either a case-sensitive substring or a compiled regex.
type Pattern struct {
	re  *regexp.Regexp // non-nil for a regex pattern
	sub string         // set for a substring pattern
}

// SubString builds a case-sensitive substring pattern.
func SubString(s string) Pattern { return Pattern{sub: s} }

// Regex builds a regex pattern from an already-compiled expression.
func Regex(re *regexp.Regexp) Pattern { return Pattern{re: re} }

// Parse interprets the text following the level token in an inline
// annotation or an `error-pattern:` directive: if it starts and ends with
// `/` it is a regex, otherwise a literal substring.
func Parse(raw string) (Pattern, error) {
	if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
		re, err := regexp.Compile(raw[1 : len(raw)-1])
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid regex pattern %q: %w", raw, err)
		}
		return Regex(re), nil
	}
	return SubString(raw), nil
}

// Matches reports whether text satisfies this pattern.
func (p Pattern) Matches(text string) bool {
	if p.re != nil {
		return p.re.MatchString(text)
	}
	return strings.Contains(text, p.sub)
}

// IsRegex reports whether this is a regex pattern.
func (p Pattern) IsRegex() bool { return p.re != nil }

// String renders the pattern for error messages, e.g. `` `substring` `` or
// `` `/regex/` ``.
func (p Pattern) String() string {
	if p.re != nil {
		return fmt.Sprintf("/%s/", p.re.String())
	}
	return fmt.Sprintf("`%s`", p.sub)
}
