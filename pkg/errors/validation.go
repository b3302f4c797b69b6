package errors

import (
	"strings"
	"unicode"
)

// maxModuleNameLen bounds module identifiers; they end up in URLs and cache keys.
const maxModuleNameLen = 256

// ValidateModuleName validates a module name for safety and correctness.
// Module names are interpolated into fetch URLs, so names that could escape
// the configured base path are rejected.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No path traversal sequences (.., //, backslash)
//   - Maximum length of 256 characters
//
// The wildcard "*" is not a module name; callers expand it before validating.
func ValidateModuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidModule, "module name cannot be empty")
	}

	if len(name) > maxModuleNameLen {
		return New(ErrCodeInvalidModule, "module name too long (max %d characters)", maxModuleNameLen)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidModule, "module name %q contains invalid characters", name)
		}
	}

	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidModule, "module name contains invalid characters: %q", pattern)
		}
	}

	if name == "*" {
		return New(ErrCodeInvalidModule, "%q is reserved for all predefined modules", name)
	}

	return nil
}
