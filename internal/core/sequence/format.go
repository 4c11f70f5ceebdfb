package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultPadding is the zero-padding width used when none is specified.
const DefaultPadding = 6

// Format describes how an allocated value is rendered.
type Format struct {
	// Prefix prepended to the padded value (e.g. "PAT"). Empty means plain decimal.
	Prefix string
	// Padding is the minimum digit width. Longer values are never truncated.
	Padding int
}

// DefaultFormat returns a format with the given prefix and default padding.
func DefaultFormat(prefix string) Format {
	return Format{Prefix: prefix, Padding: DefaultPadding}
}

// Validate checks format arguments.
func (f Format) Validate() error {
	if f.Padding < 0 {
		return fmt.Errorf("%w: padding must be non-negative, got %d", ErrInvalidInput, f.Padding)
	}
	return nil
}

// Render builds the human-readable identifier for value.
//
//	Format{"PAT", 6}.Render(7)       == "PAT000007"
//	Format{"", 6}.Render(42)         == "42"
//	Format{"PAT", 6}.Render(1234567) == "PAT1234567"
func (f Format) Render(value int64) string {
	if f.Prefix == "" {
		return strconv.FormatInt(value, 10)
	}
	return fmt.Sprintf("%s%0*d", f.Prefix, f.Padding, value)
}

// Allocation is the result of a successful allocation.
type Allocation struct {
	Value       int64  `json:"value"`
	FormattedID string `json:"formatted_id"`
}

const yearPlaceholder = "{year}"

// ScopeName expands the {year} placeholder in a counter name template.
//
//	ScopeName("patientId_{year}", t) == "patientId_2025"
func ScopeName(template string, at time.Time) string {
	return strings.ReplaceAll(template, yearPlaceholder, at.Format("2006"))
}

// YearScoped returns base + "_" + year, the naming used for counters reset every year.
func YearScoped(base string, at time.Time) string {
	return ScopeName(base+"_"+yearPlaceholder, at)
}

// MatchesTemplate reports whether name is template with every {year}
// placeholder replaced by a four-digit year.
func MatchesTemplate(template, name string) bool {
	parts := strings.Split(template, yearPlaceholder)
	if len(parts) == 1 {
		return template == name
	}
	rest := name
	for i, part := range parts {
		if !strings.HasPrefix(rest, part) {
			return false
		}
		rest = rest[len(part):]
		if i == len(parts)-1 {
			return rest == ""
		}
		if len(rest) < 4 || !isDigits(rest[:4]) {
			return false
		}
		rest = rest[4:]
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
