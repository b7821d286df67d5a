package validation

import "testing"

func TestIsValidEAN13(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{
			name:  "catalog example 1",
			code:  "8682246969499",
			valid: true,
		},
		{
			name:  "catalog example 2",
			code:  "8684410010334",
			valid: true,
		},
		{
			name:  "invalid check digit",
			code:  "8682246969490",
			valid: false,
		},
		{
			name:  "contains letters",
			code:  "86822469694A9",
			valid: false,
		},
		{
			name:  "too short",
			code:  "868224696949",
			valid: false,
		},
		{
			name:  "empty string",
			code:  "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEAN13(tt.code)
			if got != tt.valid {
				t.Fatalf("IsValidEAN13(%q) = %v, want %v", tt.code, got, tt.valid)
			}
		})
	}
}
