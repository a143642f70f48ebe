package market

import (
	"testing"
	"time"
)

func kst(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load Asia/Seoul: %v", err)
	}
	return loc
}

func TestClassifyWinterSchedule(t *testing.T) {
	c, err := NewClassifier("Asia/Seoul")
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	loc := kst(t)

	cases := []struct {
		hour, min int
		want      Session
	}{
		{10, 30, Daytime},
		{17, 59, Daytime},
		{18, 0, Premarket},
		{23, 29, Premarket},
		{23, 30, Regular},
		{0, 0, Regular},
		{5, 59, Regular},
		{6, 0, Aftermarket},
		{7, 59, Aftermarket},
		{8, 0, Extended},
		{9, 59, Extended},
	}
	for _, tc := range cases {
		// Mid-January, US standard time.
		ts := time.Date(2025, 1, 15, tc.hour, tc.min, 0, 0, loc)
		if got := c.Classify(ts); got != tc.want {
			t.Errorf("winter %02d:%02d = %s, want %s", tc.hour, tc.min, got, tc.want)
		}
	}
}

func TestClassifySummerSchedule(t *testing.T) {
	c, err := NewClassifier("Asia/Seoul")
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	loc := kst(t)

	cases := []struct {
		hour, min int
		want      Session
	}{
		{9, 0, Daytime},
		{16, 59, Daytime},
		{17, 0, Premarket},
		{22, 29, Premarket},
		{22, 30, Regular},
		{4, 59, Regular},
		{5, 0, Aftermarket},
		{7, 0, Extended},
		{8, 59, Extended},
	}
	for _, tc := range cases {
		// Mid-July, US daylight saving in effect.
		ts := time.Date(2025, 7, 15, tc.hour, tc.min, 0, 0, loc)
		if got := c.Classify(ts); got != tc.want {
			t.Errorf("summer %02d:%02d = %s, want %s", tc.hour, tc.min, got, tc.want)
		}
	}
}

func TestContains(t *testing.T) {
	allowed := []Session{Regular}
	if !Contains(allowed, Regular) {
		t.Fatal("Regular should be allowed")
	}
	if Contains(allowed, Premarket) {
		t.Fatal("Premarket should not be allowed")
	}
}

func TestParseSession(t *testing.T) {
	if s, ok := ParseSession("REGULAR"); !ok || s != Regular {
		t.Fatalf("ParseSession(REGULAR) = %s,%v", s, ok)
	}
	if _, ok := ParseSession("LUNCH"); ok {
		t.Fatal("ParseSession should reject unknown names")
	}
}
