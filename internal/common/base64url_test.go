package common

import (
	"testing"
)

func TestEncodeID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "SimpleString",
			input:    "hello world",
			expected: "aGVsbG8gd29ybGQ",
		},
		{
			name:     "EmptyString",
			input:    "",
			expected: "",
		},
		{
			name:     "URNIdentifier",
			input:    "urn:example:aas:1",
			expected: "dXJuOmV4YW1wbGU6YWFzOjE",
		},
		{
			name:     "NoPaddingTwoBytes",
			input:    "ab",
			expected: "YWI",
		},
		{
			name:     "NoPaddingOneByte",
			input:    "a",
			expected: "YQ",
		},
		{
			name:     "WithNonASCII",
			input:    "こんにちは",
			expected: "44GT44KT44Gr44Gh44Gv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EncodeID(tt.input)
			if result != tt.expected {
				t.Errorf("EncodeID(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDecodeID(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "SimpleString",
			input:    "aGVsbG8gd29ybGQ",
			expected: "hello world",
		},
		{
			name:        "EmptyString",
			input:       "",
			expectError: true,
		},
		{
			name:     "WithDashUnderscoreChars",
			input:    "aGVsbG8td29ybGRfdGVzdA",
			expected: "hello-world_test",
		},
		{
			name:     "NoPadding",
			input:    "YWI",
			expected: "ab",
		},
		{
			name:        "StandardAlphabetRejected",
			input:       "abc+def",
			expectError: true,
		},
		{
			name:        "InvalidCharacters",
			input:       "!@#$%^",
			expectError: true,
		},
		{
			name:        "ImpossibleLength",
			input:       "YWJjZ",
			expectError: true,
		},
		{
			name:        "PaddingRejected",
			input:       "YWI=",
			expectError: true,
		},
		{
			name:        "InvalidUTF8",
			input:       EncodeID(string([]byte{0xff, 0xfe})),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DecodeID(tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatalf("DecodeID(%q) expected error but got none", tt.input)
				}
				if !IsErrInvalidBase64URL(err) {
					t.Errorf("DecodeID(%q) error is not InvalidBase64Url: %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeID(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("DecodeID(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIdentifierRoundtrip(t *testing.T) {
	tests := []string{
		"a",
		"ab",
		"abc",
		"urn:example:submodel:42",
		"https://example.com/ids/sm/4353_6452_4351_9338",
		"Hello, 世界!",
		"Special chars: !@#$%^&*()_+-=[]{}|;':\",./<>?",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			encoded := EncodeID(tt)
			decoded, err := DecodeID(encoded)
			if err != nil {
				t.Fatalf("Failed to decode %q: %v", encoded, err)
			}
			if decoded != tt {
				t.Errorf("Roundtrip failed: original=%q, got=%q", tt, decoded)
			}
		})
	}
}
