package utils

import (
	"regexp"
	"testing"
)

func TestGenerateTrackingCodeFormat(t *testing.T) {
	format := regexp.MustCompile(`^APP-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateTrackingCode()
		if !format.MatchString(code) {
			t.Fatalf("tracking code %q does not match expected format", code)
		}
		seen[code] = true
	}
	if len(seen) < 99 {
		t.Fatalf("tracking codes collide too often: %d unique of 100", len(seen))
	}
}
