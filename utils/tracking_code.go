package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateTrackingCode returns an externally shown application code in
// the form APP-XXXXXXXX. Eight hex characters keep the code short
// enough to read out loud; callers check uniqueness before use.
func GenerateTrackingCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "APP-" + strings.ToUpper(raw[:8])
}
