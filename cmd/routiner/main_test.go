package main

import (
	"testing"
	"time"

	"github.com/dukerupert/routiner/internal/schedule"
)

func TestParseMonthArg(t *testing.T) {
	now := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.Local)

	got, err := parseMonthArg(nil, now)
	if err != nil || got != (schedule.Month{Year: 2024, Month: time.March}) {
		t.Errorf("default = %+v, %v", got, err)
	}

	got, err = parseMonthArg([]string{"2023-12"}, now)
	if err != nil || got != (schedule.Month{Year: 2023, Month: time.December}) {
		t.Errorf("explicit = %+v, %v", got, err)
	}

	for _, bad := range []string{"2023-13", "12-2023", "march"} {
		if _, err := parseMonthArg([]string{bad}, now); err == nil {
			t.Errorf("parseMonthArg(%q) succeeded", bad)
		}
	}
}
