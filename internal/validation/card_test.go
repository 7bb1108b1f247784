package validation

import "testing"

func TestIsValidCardNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"valid visa test number", "4242424242424242", true},
		{"valid with spaces", "4242 4242 4242 4242", true},
		{"luhn failure", "4242424242424243", false},
		{"too short", "424242424242", false},
		{"letters", "4242a24242424242", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCardNumber(tt.number); got != tt.want {
				t.Fatalf("IsValidCardNumber(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}

func TestIsValidExpiry(t *testing.T) {
	valid := []string{"01/26", "12/30"}
	invalid := []string{"13/26", "00/26", "1/26", "0126", "aa/bb", ""}

	for _, v := range valid {
		if !IsValidExpiry(v) {
			t.Fatalf("IsValidExpiry(%q) = false, want true", v)
		}
	}
	for _, v := range invalid {
		if IsValidExpiry(v) {
			t.Fatalf("IsValidExpiry(%q) = true, want false", v)
		}
	}
}

func TestIsValidCVV(t *testing.T) {
	if !IsValidCVV("123") {
		t.Fatalf("IsValidCVV(123) = false, want true")
	}
	for _, v := range []string{"12", "1234", "12a", ""} {
		if IsValidCVV(v) {
			t.Fatalf("IsValidCVV(%q) = true, want false", v)
		}
	}
}

func TestIsValidHolder(t *testing.T) {
	if !IsValidHolder("ERSIN KOC") {
		t.Fatalf("IsValidHolder = false, want true")
	}
	if IsValidHolder("   ") {
		t.Fatalf("IsValidHolder(blank) = true, want false")
	}
}
