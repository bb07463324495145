package errors

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxLabelLength bounds title-block labels; they end up in persisted view-set names.
const maxLabelLength = 200

// ValidateLabel validates a title-block label used as a grouping key and as
// the prefix of persisted view-set names.
//
// Labels are opaque tokens, so the rules only reject what cannot be stored:
//   - No empty labels
//   - No invalid UTF-8
//   - No control characters
//   - Maximum length of 200 characters
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidLabel, "label cannot be empty")
	}
	if !utf8.ValidString(label) {
		return New(ErrCodeInvalidLabel, "label is not valid UTF-8")
	}
	if utf8.RuneCountInString(label) > maxLabelLength {
		return New(ErrCodeInvalidLabel, "label too long (max %d characters)", maxLabelLength)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidLabel, "label contains invalid control characters")
		}
	}
	return nil
}

// ValidateFileName validates an export file name for safety.
// It ensures the name is a simple basename without path components.
func ValidateFileName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "file name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return New(ErrCodeInvalidName, "file name cannot contain path separators")
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidName, "file name cannot be %q", name)
	}
	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "file name contains invalid characters")
		}
	}
	return nil
}

// ValidateOutputDir validates an output directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Path must be absolute
//   - No null bytes or control characters
func ValidateOutputDir(dir string) error {
	if dir == "" {
		return New(ErrCodeInvalidPath, "output directory cannot be empty")
	}
	for _, r := range dir {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output directory contains invalid characters")
		}
	}
	if !filepath.IsAbs(dir) {
		return New(ErrCodeInvalidPath, "output directory must be absolute: %s", dir)
	}
	return nil
}

// SanitizeFileName turns a view or document name into a usable file name.
// Path separators, reserved characters and control characters become '_'.
// An empty result becomes "untitled".
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "untitled"
	}
	return out
}
