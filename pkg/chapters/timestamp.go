package chapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timestampRegex = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2})(?:[.,](\d{1,9}))?$`)

// ParseTimestamp parses "HH:MM:SS[.fraction]" or a plain number of
// nanoseconds.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative timestamp: %q", s)
		}
		return n, nil
	}

	m := timestampRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp: %q", s)
	}
	hours, _ := strconv.ParseInt(m[1], 10, 64)
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp: %q", s)
	}
	var frac int64
	if m[4] != "" {
		frac, _ = strconv.ParseInt(m[4]+strings.Repeat("0", 9-len(m[4])), 10, 64)
	}
	return ((hours*60+minutes)*60+seconds)*1e9 + frac, nil
}

// FormatTimestamp formats ns as "HH:MM:SS.nnnnnnnnn".
func FormatTimestamp(ns int64) string {
	sign := ""
	if ns < 0 {
		sign, ns = "-", -ns
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%09d",
		sign, ns/3600e9, ns/60e9%60, ns/1e9%60, ns%1e9)
}
