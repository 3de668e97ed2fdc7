package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSensitiveColumns are masked when no columns are configured.
var DefaultSensitiveColumns = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

const mask = "***REDACTED***"

// quotedIdentifier matches "ident" and `ident`.
var quotedIdentifier = regexp.MustCompile("\"((?:[^\"]|\"\")+)\"|`((?:[^`]|``)+)`")

// Sanitizer masks bound arguments of statements touching sensitive columns.
//
// A column is sensitive when a run of its underscore-separated segments
// matches a configured name: "password" matches "password" and
// "user_password" but not "passwords_reset_count". Bulk update arguments are
// interleaved across the SET list, the row source and the join, so all
// arguments of an affected statement are masked.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given column names, or for
// DefaultSensitiveColumns when none are given.
func NewSanitizer(columns []string) *Sanitizer {
	if len(columns) == 0 {
		columns = DefaultSensitiveColumns
	}
	patterns := make([]*regexp.Regexp, 0, len(columns))
	for _, c := range columns {
		patterns = append(patterns, regexp.MustCompile(`(?i)(^|_)`+regexp.QuoteMeta(c)+`($|_)`))
	}
	return &Sanitizer{patterns: patterns}
}

// IsSensitive reports whether a column name is sensitive.
func (s *Sanitizer) IsSensitive(column string) bool {
	for _, p := range s.patterns {
		if p.MatchString(column) {
			return true
		}
	}
	return false
}

// Sensitive reports whether any of the columns is sensitive.
func (s *Sanitizer) Sensitive(columns []string) bool {
	for _, c := range columns {
		if s.IsSensitive(c) {
			return true
		}
	}
	return false
}

// MaskParams returns params with every value masked when the SQL references
// a sensitive quoted identifier, params unchanged otherwise. The input slice
// is never modified.
func (s *Sanitizer) MaskParams(sql string, params []interface{}) []interface{} {
	if len(params) == 0 || !s.Sensitive(identifiers(sql)) {
		return params
	}
	return maskAll(params)
}

// MaskColumns masks params when any of the columns is sensitive.
func (s *Sanitizer) MaskColumns(columns []string, params []interface{}) []interface{} {
	if len(params) == 0 || !s.Sensitive(columns) {
		return params
	}
	return maskAll(params)
}

func maskAll(params []interface{}) []interface{} {
	masked := make([]interface{}, len(params))
	for i, p := range params {
		if p == nil {
			continue // NULL stays NULL
		}
		masked[i] = mask
	}
	return masked
}

// identifiers extracts quoted identifiers from SQL.
func identifiers(sql string) []string {
	var out []string
	for _, m := range quotedIdentifier.FindAllStringSubmatch(sql, -1) {
		if m[1] != "" {
			out = append(out, strings.ReplaceAll(m[1], `""`, `"`))
		} else {
			out = append(out, strings.ReplaceAll(m[2], "``", "`"))
		}
	}
	return out
}

// FormatParams converts parameters to a string for logging. Sensitive values
// should be masked before calling this.
func (s *Sanitizer) FormatParams(params []interface{}) string {
	if len(params) == 0 {
		return "[]"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue formats one value, truncating long ones.
func formatValue(v interface{}) string {
	var str string
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		str = fmt.Sprintf("<%d bytes>", len(x))
	case string:
		str = x
	default:
		str = fmt.Sprintf("%v", v)
	}

	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
