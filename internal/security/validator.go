// Package security validates raw SQL fragments that bulk updates inline into
// the compiled statement without binding.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeFragment is returned for raw SQL rejected by a Validator.
var ErrUnsafeFragment = errors.New("unsafe raw SQL fragment")

// DefaultMaxLength caps the length of a raw fragment.
const DefaultMaxLength = 4096

// Validator checks raw SQL values. A raw value is a single expression such as
// upper(?) or a scalar subquery, so statement separators, comments and
// data-changing keywords never belong in one.
type Validator struct {
	patterns  []rule
	strict    bool
	maxLength int
}

type rule struct {
	re   *regexp.Regexp
	name string
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict also rejects subqueries and set operations.
func WithStrict(strict bool) ValidatorOption {
	return func(v *Validator) {
		v.strict = strict
	}
}

// WithMaxLength overrides DefaultMaxLength. Zero or less disables the limit.
func WithMaxLength(n int) ValidatorOption {
	return func(v *Validator) {
		v.maxLength = n
	}
}

// NewValidator creates a raw fragment validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		patterns:  compileRules(dangerousPatterns),
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.strict {
		v.patterns = append(v.patterns, compileRules(strictPatterns)...)
	}
	return v
}

// dangerousPatterns are matched against the upper-cased fragment with string
// literals and quoted identifiers blanked out.
var dangerousPatterns = [][2]string{
	{`;`, "statement separator"},
	{`--`, "comment"},
	{`/\*`, "comment"},
	{`#`, "comment"},
	{`\b(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|MERGE|REPLACE\s+INTO)\b`, "data-changing keyword"},
	{`\bUNION\s+(ALL\s+)?SELECT\b`, "UNION SELECT"},
	{`\bINTO\s+(OUTFILE|DUMPFILE)\b`, "file write"},
	{`\b(EXEC|EXECUTE)\s*\(`, "dynamic SQL"},
	{`\b(XP_CMDSHELL|SP_EXECUTESQL)\b`, "dynamic SQL"},
	{`\b(PG_SLEEP|SLEEP|BENCHMARK)\s*\(`, "timing function"},
	{`\bWAITFOR\s+DELAY\b`, "timing function"},
	{`\bINFORMATION_SCHEMA\b`, "metadata access"},
}

var strictPatterns = [][2]string{
	{`\bSELECT\b`, "subquery"},
	{`\b(UNION|INTERSECT|EXCEPT)\b`, "set operation"},
}

// ValidateFragment checks one raw SQL value.
func (v *Validator) ValidateFragment(fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return fmt.Errorf("%w: empty", ErrUnsafeFragment)
	}
	if v.maxLength > 0 && len(fragment) > v.maxLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrUnsafeFragment, v.maxLength)
	}
	blanked, ok := blankQuoted(fragment)
	if !ok {
		return fmt.Errorf("%w: unterminated quote", ErrUnsafeFragment)
	}
	normalized := strings.ToUpper(blanked)
	for _, r := range v.patterns {
		if r.re.MatchString(normalized) {
			return fmt.Errorf("%w: contains %s", ErrUnsafeFragment, r.name)
		}
	}
	return nil
}

// blankQuoted replaces the contents of '...', "..." and `...` with spaces,
// honoring doubled quotes. ok is false for an unterminated quote.
func blankQuoted(s string) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(s))
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"' || c == '`'):
			quote = c
			sb.WriteByte(c)
		case quote != 0 && c == quote:
			if i+1 < len(s) && s[i+1] == quote {
				sb.WriteString("  ")
				i++
				continue
			}
			quote = 0
			sb.WriteByte(c)
		case quote != 0:
			sb.WriteByte(' ')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), quote == 0
}

func compileRules(patterns [][2]string) []rule {
	out := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, rule{re: regexp.MustCompile(p[0]), name: p[1]})
	}
	return out
}
