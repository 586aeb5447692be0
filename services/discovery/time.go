package discovery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Daypart string

const (
	DaypartMorning   Daypart = "morning"
	DaypartMatinee   Daypart = "matinee"
	DaypartEvening   Daypart = "evening"
	DaypartLateNight Daypart = "late-night"
)

var clockRegex = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// NormalizeClock converts the clock strings seen on listing sites
// ("7:00 PM", "7.00pm", "19:00", "7 pm") into the canonical "7:00 PM"
// form. Showtime is part of the natural key, so two spellings of the same
// time must collapse to one value before persistence.
func NormalizeClock(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	// "7.00pm" and "p.m." styles
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.ReplaceAll(s, "a:m:", "am")
	s = strings.ReplaceAll(s, "p:m:", "pm")
	s = strings.ReplaceAll(s, "a:m", "am")
	s = strings.ReplaceAll(s, "p:m", "pm")

	m := clockRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("unrecognized clock string %q", raw)
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("unrecognized clock string %q", raw)
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return "", fmt.Errorf("unrecognized clock string %q", raw)
		}
	}

	meridiem := m[3]
	if meridiem == "" {
		// bare times are a 24-hour clock
		if hour > 23 {
			return "", fmt.Errorf("unrecognized clock string %q", raw)
		}
		meridiem = "am"
		if hour >= 12 {
			meridiem = "pm"
		}
		if hour > 12 {
			hour -= 12
		}
		if hour == 0 {
			hour = 12
		}
	} else if hour < 1 || hour > 12 {
		return "", fmt.Errorf("unrecognized clock string %q", raw)
	}

	return fmt.Sprintf("%d:%02d %s", hour, minute, strings.ToUpper(meridiem)), nil
}

// DaypartOf buckets a canonical clock string. hour24 boundaries:
// [0,12) morning, [12,17) matinee, [17,21) evening, [21,24) late-night.
func DaypartOf(canonical string) Daypart {
	var hour, minute int
	var meridiem string
	_, err := fmt.Sscanf(canonical, "%d:%d %s", &hour, &minute, &meridiem)
	if err != nil {
		return DaypartEvening
	}

	if hour == 12 {
		hour = 0
	}
	if meridiem == "PM" {
		hour += 12
	}

	switch {
	case hour < 12:
		return DaypartMorning
	case hour < 17:
		return DaypartMatinee
	case hour < 21:
		return DaypartEvening
	default:
		return DaypartLateNight
	}
}
