package sequence

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Target identifies where existing identifiers for a counter live.
type Target struct {
	// Collection is the table (or collection) holding the numbered records.
	Collection string `mapstructure:"collection" validate:"required"`
	// Field is the column holding the identifier.
	Field string `mapstructure:"field" validate:"required"`
	// Prefix is the identifier prefix; empty means the field is numeric.
	Prefix string `mapstructure:"prefix"`
}

// Scanner finds the highest identifier value already in use.
//
// With a prefix, values matching ^prefix(\d+)$ are considered and the largest
// numeric suffix wins; other values are ignored. Without a prefix, the record
// with the greatest field value is parsed as an integer (0 if unparsable).
// An empty collection yields 0. I/O failures are returned as *ScanFailedError.
type Scanner interface {
	Scan(ctx context.Context, target Target) (int64, error)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks that collection and field are plain (optionally schema-qualified) identifiers.
func (t Target) Validate() error {
	if !identPattern.MatchString(t.Collection) {
		return fmt.Errorf("%w: invalid collection name %q", ErrInvalidInput, t.Collection)
	}
	if !identPattern.MatchString(t.Field) || strings.Contains(t.Field, ".") {
		return fmt.Errorf("%w: invalid field name %q", ErrInvalidInput, t.Field)
	}
	return nil
}

// PrefixPattern returns the anchored pattern matching identifiers with the given prefix.
func PrefixPattern(prefix string) string {
	return "^" + regexp.QuoteMeta(prefix) + "([0-9]+)$"
}

// MaxSuffix returns the largest numeric suffix among values matching ^prefix(\d+)$.
// Values that do not match, or whose suffix overflows int64, are skipped.
func MaxSuffix(values []string, prefix string) int64 {
	re := regexp.MustCompile(PrefixPattern(prefix))
	var maxFound int64
	for _, v := range values {
		m := re.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if n > maxFound {
			maxFound = n
		}
	}
	return maxFound
}

// ParseNumeric parses an unprefixed identifier value. Returns 0 when unparsable or negative.
func ParseNumeric(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	// NUMERIC columns come back as "42.0" or "4.2E+1"
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() || d.GreaterThan(maxInt64) {
		return 0
	}
	return d.IntPart()
}

var maxInt64 = decimal.NewFromInt(math.MaxInt64)
