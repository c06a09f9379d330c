// Package formatting converts byte sizes between counts and the
// human-readable strings used in configuration files.
package formatting

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sizes are base-1024. Index i is 1024^i bytes.
var units = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// ErrEmptySize is returned by ParseBytes for blank input.
var ErrEmptySize = errors.New("empty byte size")

// FormatBytes renders n using the largest unit that keeps the value at
// least 1, with precision decimal places. Negative precision is treated
// as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	value := float64(n)
	i := 0
	for math.Abs(value) >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}

	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(value, 'f', precision, 64) + " " + units[i]
}

// ParseBytes reads sizes such as "10MB", "12 mb" or "1.5KB". A bare
// number is a byte count. Units are case-insensitive.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptySize
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.TrimSpace(s[split:])
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	if unit == "" {
		return int64(value), nil
	}

	for i, u := range units {
		if strings.EqualFold(unit, u) {
			return int64(value * math.Pow(1024, float64(i))), nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit %q", unit)
}
