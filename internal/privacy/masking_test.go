package privacy

import (
	"testing"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plus prefixed", "+1234567890", "+******7890"},
		{"plus short", "+123", "+***"},
		{"bare number", "1234567890", "******7890"},
		{"short number", "123", "***"},
		{"just plus", "+", "+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskPhoneNumber(tt.input); got != tt.expected {
				t.Errorf("MaskPhoneNumber(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMaskChatID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"direct chat", "1234567890@c.us", "******7890@c.us"},
		{"group chat", "12036304@g.us", "****6304@g.us"},
		{"short local part", "123@c.us", "***@c.us"},
		{"no domain", "1234567890", "******7890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskChatID(tt.input); got != tt.expected {
				t.Errorf("MaskChatID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMaskMessageBody(t *testing.T) {
	if got := MaskMessageBody("hi"); got != "**" {
		t.Errorf("Expected full mask for short body, got %q", got)
	}
	if got := MaskMessageBody("hello there friend"); got != "hello th..." {
		t.Errorf("Expected truncated preview, got %q", got)
	}
}
