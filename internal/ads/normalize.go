// Package ads normalizes hourly ad-delivery rows and rolls them up to the
// daily and hourly grains the matcher and reconciler join on.
package ads

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnknownID stands in for a missing ad dimension id in join keys.
const UnknownID = "Unknown"

var numericID = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?(?:[eE]([+-]?\d+))?$`)

// NormalizeID returns the canonical decimal form of an ad platform id, so
// "1.23e12", "1230000000000.0" and "1230000000000" all compare equal.
// Non-numeric ids are returned trimmed. ok is false for blank/null ids.
func NormalizeID(v string) (id string, ok bool) {
	s := strings.TrimSpace(v)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "unknown":
		return "", false
	}
	m := numericID.FindStringSubmatch(s)
	if m == nil || (m[2] == "" && m[3] == "") {
		return s, true
	}
	sign, intPart, frac := m[1], m[2], m[3]
	exp := 0
	if m[4] != "" {
		e, err := strconv.Atoi(m[4])
		if err != nil || e > 40 || e < -40 {
			return s, true
		}
		exp = e
	}
	digits := intPart + frac
	shift := exp - len(frac)
	switch {
	case shift >= 0:
		digits += strings.Repeat("0", shift)
	default:
		cut := len(digits) + shift
		if cut < 0 || strings.Trim(digits[max(cut, 0):], "0") != "" {
			// not an integer, leave it as delivered
			return s, true
		}
		digits = digits[:cut]
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0", true
	}
	if sign == "-" {
		return "-" + digits, true
	}
	return digits, true
}

// KeyID is NormalizeID with UnknownID for blanks, used in join keys.
func KeyID(v string) string {
	if id, ok := NormalizeID(v); ok {
		return id
	}
	return UnknownID
}

var hourRe = regexp.MustCompile(`(\d{1,2})`)

// HourLabel renders hour-of-day h as "HH:00:00 - HH:59:59".
func HourLabel(h int) string {
	h = ((h % 24) + 24) % 24
	return fmt.Sprintf("%02d:00:00 - %02d:59:59", h, h)
}

// NormalizeHourWindow canonicalizes any hourly window label by its first
// hour number, modulo 24.
func NormalizeHourWindow(s string) (string, bool) {
	m := hourRe.FindString(s)
	if m == "" {
		return "", false
	}
	h, err := strconv.Atoi(m)
	if err != nil {
		return "", false
	}
	return HourLabel(h), true
}

// TimeHourLabel buckets a timestamp into its hour window.
func TimeHourLabel(t time.Time) string { return HourLabel(t.Hour()) }

const DateLayout = "2006-01-02"

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
