package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Rider@Example.COM ", "rider@example.com"},
		{"", ""},
		{"a@b.c", "a@b.c"},
	}
	for _, tt := range tests {
		if got := Email(tt.in); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Ada   Lovelace ", "Ada Lovelace"},
		{"\tJo\nSmith", "Jo Smith"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPhone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"+1 (555) 010-2030", "+15550102030"},
		{"555.010.2030", "5550102030"},
		{" 12+34 ", "1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Phone(tt.in); got != tt.want {
			t.Errorf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToken(t *testing.T) {
	if got := Token("  Driving_License "); got != "driving_license" {
		t.Errorf("Token: got %q", got)
	}
}
