package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Diagnostic
	}{
		{
			name: "empty message",
			raw:  "",
			want: Diagnostic{Kind: KindFailure, Message: "Test failed"},
		},
		{
			name: "assertion failure",
			raw:  "expected 3 but was 4",
			want: Diagnostic{Kind: KindFailure, Message: "expected 3 but was 4"},
		},
		{
			name: "died with multi-line stack",
			raw:  "Died on test #3  \nTypeError: x is not defined\n    at foo.js:12: evaluating expr",
			want: Diagnostic{
				Kind:    KindError,
				Message: "Died on test #3: evaluating expr",
				Stack:   "\nTypeError: x is not defined\n    at foo.js:1",
			},
		},
		{
			name: "died on one line",
			raw:  "Died on test #1     at http://h/a.js:10: Can't find variable: foo",
			want: Diagnostic{
				Kind:    KindError,
				Message: "Died on test #1: Can't find variable: foo",
				Stack:   "at http://h/a.js:1",
			},
		},
		{
			name: "died without line number is a plain failure",
			raw:  "Died on test #4 somewhere",
			want: Diagnostic{Kind: KindFailure, Message: "Died on test #4 somewhere"},
		},
		{
			name: "ansi colour codes are stripped",
			raw:  "\x1b[31mexpected true\x1b[0m",
			want: Diagnostic{Kind: KindFailure, Message: "expected true"},
		},
		{
			name: "only ansi codes",
			raw:  "\x1b[0m",
			want: Diagnostic{Kind: KindFailure, Message: "Test failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDiagnostic(tt.raw))
		})
	}
}

func TestParseDiagnostic_StackContainsErrorText(t *testing.T) {
	d := ParseDiagnostic("Died on test #3  \nTypeError: x is not defined\n    at foo.js:12: evaluating expr")
	assert.Equal(t, KindError, d.Kind)
	assert.NotEmpty(t, d.Stack)
	assert.Contains(t, d.Stack, "TypeError: x is not defined")
}
