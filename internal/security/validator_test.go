package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateFragment(t *testing.T) {
	tests := []struct {
		name      string
		fragment  string
		strict    bool
		wantError bool
	}{
		// Legitimate fragments
		{"function call", "upper(?)", false, false},
		{"current time", "CURRENT_TIMESTAMP", false, false},
		{"column reference", `"books"."price" * 2`, false, false},
		{"replace function", "REPLACE(title, 'a', 'b')", false, false},
		{"scalar subquery", "(SELECT MAX(price) FROM offers WHERE offers.book_id = ?)", false, false},
		{"keyword inside literal", "'DROP TABLE; -- not code'", false, false},
		{"keyword inside identifier", `"delete"`, false, false},
		{"doubled quote", "'it''s'", false, false},
		{"updated_at column", "updated_at", false, false},

		// Rejected in every mode
		{"empty", "  ", false, true},
		{"stacked statement", "1; DROP TABLE books", false, true},
		{"trailing separator", "upper(?);", false, true},
		{"double dash comment", "1 -- comment", false, true},
		{"c comment", "1 /* x */", false, true},
		{"hash comment", "1 # x", false, true},
		{"data-changing keyword", "(DELETE FROM books RETURNING 1)", false, true},
		{"union select", "(SELECT 1 UNION SELECT password FROM users)", false, true},
		{"into outfile", "(SELECT 1 INTO OUTFILE '/tmp/x')", false, true},
		{"sleep", "pg_sleep(10)", false, true},
		{"benchmark", "BENCHMARK(1000000, MD5('x'))", false, true},
		{"waitfor", "1 WAITFOR DELAY '0:0:5'", false, true},
		{"metadata", "(SELECT table_name FROM information_schema.tables)", false, true},
		{"unterminated quote", "'abc", false, true},

		// Strict mode
		{"strict subquery", "(SELECT MAX(price) FROM offers)", true, true},
		{"strict except", "(VALUES (1) EXCEPT VALUES (2))", true, true},
		{"strict function", "lower(?)", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(WithStrict(tt.strict))
			err := v.ValidateFragment(tt.fragment)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrUnsafeFragment)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_MaxLength(t *testing.T) {
	long := "'" + strings.Repeat("a", 100) + "'"

	assert.Error(t, NewValidator(WithMaxLength(50)).ValidateFragment(long))
	assert.NoError(t, NewValidator(WithMaxLength(0)).ValidateFragment(long))
	assert.NoError(t, NewValidator().ValidateFragment(long))
}

func TestValidator_ErrorNamesRule(t *testing.T) {
	err := NewValidator().ValidateFragment("1; DROP TABLE books")
	assert.EqualError(t, err, "unsafe raw SQL fragment: contains statement separator")
}

func TestBlankQuoted(t *testing.T) {
	got, ok := blankQuoted(`a 'b''c' "d" e`)
	assert.True(t, ok)
	assert.Equal(t, `a '    ' " " e`, got)

	_, ok = blankQuoted("`open")
	assert.False(t, ok)
}

func BenchmarkValidator_ValidateFragment(b *testing.B) {
	v := NewValidator()
	for i := 0; i < b.N; i++ {
		_ = v.ValidateFragment("(SELECT MAX(price) FROM offers WHERE offers.book_id = ?)")
	}
}
