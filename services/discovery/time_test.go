package discovery

import "testing"

func TestNormalizeClock(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
		wantErr  bool
	}{
		{raw: "7:00 PM", expected: "7:00 PM"},
		{raw: "7.00pm", expected: "7:00 PM"},
		{raw: "7 pm", expected: "7:00 PM"},
		{raw: "7:00 p.m.", expected: "7:00 PM"},
		{raw: "19:00", expected: "7:00 PM"},
		{raw: "10:45 am", expected: "10:45 AM"},
		{raw: "12:30", expected: "12:30 PM"},
		{raw: "0:15", expected: "12:15 AM"},
		{raw: "  9:05 PM ", expected: "9:05 PM"},
		{raw: "midnight", wantErr: true},
		{raw: "25:00", wantErr: true},
		{raw: "13:00 pm", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, test := range testCases {
		got, err := NormalizeClock(test.raw)
		if test.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %q", test.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", test.raw, err)
		}
		if got != test.expected {
			t.Fatalf("%q: expected %q, got %q", test.raw, test.expected, got)
		}
	}
}

func TestDaypartOf(t *testing.T) {
	testCases := []struct {
		clock    string
		expected Daypart
	}{
		{"9:30 AM", DaypartMorning},
		{"12:00 PM", DaypartMatinee},
		{"4:59 PM", DaypartMatinee},
		{"5:00 PM", DaypartEvening},
		{"7:00 PM", DaypartEvening},
		{"9:00 PM", DaypartLateNight},
		{"11:45 PM", DaypartLateNight},
		{"12:05 AM", DaypartMorning},
	}

	for _, test := range testCases {
		got := DaypartOf(test.clock)
		if got != test.expected {
			t.Fatalf("%q: expected %q, got %q", test.clock, test.expected, got)
		}
	}
}
