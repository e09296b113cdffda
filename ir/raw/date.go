package raw

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDate renders t as a PDF date string, D:YYYYMMDDHHmmSSOHH'mm'.
func FormatDate(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	if offset == 0 {
		return t.Format("D:20060102150405") + "Z"
	}
	return fmt.Sprintf("%s%c%02d'%02d'", t.Format("D:20060102150405"), sign, offset/3600, (offset%3600)/60)
}

// ParseDate reads a PDF date string. Missing trailing fields default to
// their lowest value; a missing zone means UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return time.Time{}, fmt.Errorf("invalid PDF date %q", s)
	}
	field := func(start, n, def int) (int, error) {
		if len(s) < start+n {
			return def, nil
		}
		return strconv.Atoi(s[start : start+n])
	}
	var vals [6]int
	defs := [6]int{0, 1, 1, 0, 0, 0}
	starts := [6]int{0, 4, 6, 8, 10, 12}
	lens := [6]int{4, 2, 2, 2, 2, 2}
	for i := range vals {
		v, err := field(starts[i], lens[i], defs[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid PDF date %q: %w", s, err)
		}
		vals[i] = v
	}
	loc := time.UTC
	if len(s) > 14 {
		zone := s[14:]
		switch zone[0] {
		case '+', '-':
			parts := strings.Split(strings.Trim(zone[1:], "'"), "'")
			h, _ := strconv.Atoi(parts[0])
			m := 0
			if len(parts) > 1 {
				m, _ = strconv.Atoi(parts[1])
			}
			off := h*3600 + m*60
			if zone[0] == '-' {
				off = -off
			}
			loc = time.FixedZone("", off)
		}
	}
	return time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], 0, loc), nil
}
