package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// ParseFloat accepts both '.' and ',' as decimal separator.
func ParseFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(s, 64)
}

// FormatFloat renders v with the shortest exact representation.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatLeverage renders a leverage as the tester's "1:N".
func FormatLeverage(n int) string {
	return "1:" + strconv.Itoa(n)
}

// ParseLeverage accepts "1:N" or "N".
func ParseLeverage(s string) (int, error) {
	s = strings.TrimSpace(s)
	if _, rest, ok := strings.Cut(s, ":"); ok {
		s = rest
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid leverage %q", s)
	}
	return n, nil
}
