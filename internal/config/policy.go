package config

import "strings"

// NoCaptureDatePolicy selects what happens to a file whose metadata carries no
// usable capture date.
type NoCaptureDatePolicy string

const (
	// NoCaptureDateSkip leaves the file in place.
	NoCaptureDateSkip NoCaptureDatePolicy = "skip"
	// NoCaptureDateFixedDir relocates the file, keeping its name, into a quarantine directory.
	NoCaptureDateFixedDir NoCaptureDatePolicy = "fixed_dir"
	// NoCaptureDateFallbackModified names the file after its modification time.
	NoCaptureDateFallbackModified NoCaptureDatePolicy = "fallback_modified_date"
	// NoCaptureDateStop aborts the run.
	NoCaptureDateStop NoCaptureDatePolicy = "stop"
)

// DuplicatePolicy selects what happens when the destination name is taken.
type DuplicatePolicy string

const (
	// DuplicateSkip leaves the file in place.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateIncrease appends _001, _002, ... until a free name is found.
	DuplicateIncrease DuplicatePolicy = "increase"
	// DuplicateStop aborts the run.
	DuplicateStop DuplicatePolicy = "stop"
)

// Valid reports whether p is a recognized policy.
func (p NoCaptureDatePolicy) Valid() bool {
	switch p {
	case NoCaptureDateSkip, NoCaptureDateFixedDir, NoCaptureDateFallbackModified, NoCaptureDateStop:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a recognized policy.
func (p DuplicatePolicy) Valid() bool {
	switch p {
	case DuplicateSkip, DuplicateIncrease, DuplicateStop:
		return true
	default:
		return false
	}
}

// ParseNoCaptureDatePolicy accepts any casing and dashes in place of
// underscores, plus the legacy "modified_date" spelling.
func ParseNoCaptureDatePolicy(value string) NoCaptureDatePolicy {
	normalized := normalizePolicyValue(value)
	if normalized == "modified_date" {
		return NoCaptureDateFallbackModified
	}
	return NoCaptureDatePolicy(normalized)
}

// ParseDuplicatePolicy accepts any casing and dashes in place of underscores.
func ParseDuplicatePolicy(value string) DuplicatePolicy {
	return DuplicatePolicy(normalizePolicyValue(value))
}

func normalizePolicyValue(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.ReplaceAll(value, "-", "_")
}
