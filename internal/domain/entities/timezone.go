package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LoadLocation resolves the zone the feeder's wall clock runs in.
//
// Accepted forms:
//   - "" or "Local": the host zone
//   - "UTC", "GMT"
//   - IANA names such as "Asia/Manila"
//   - fixed offsets: "UTC+8", "UTC-3:30", "+08:00"
//
// Fixed offsets produce a time.FixedZone and ignore DST.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	switch {
	case tz == "" || strings.EqualFold(tz, "Local"):
		return time.Local, nil
	case strings.EqualFold(tz, "UTC"), strings.EqualFold(tz, "GMT"):
		return time.UTC, nil
	}

	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}

	offset, ok := parseOffset(tz)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported timezone %q", ErrInvalidInput, tz)
	}
	return time.FixedZone(offsetName(offset), offset), nil
}

func parseOffset(tz string) (int, bool) {
	s := tz
	if len(s) >= 3 && strings.EqualFold(s[:3], "UTC") {
		s = strings.TrimSpace(s[3:])
	}
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}

	sign := 1
	if s[0] == '-' {
		sign = -1
	}

	hh, mm, hasMinutes := strings.Cut(s[1:], ":")
	if !hasMinutes {
		mm = "0"
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 14 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m >= 60 {
		return 0, false
	}

	return sign * (h*3600 + m*60), true
}

func offsetName(offset int) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}
