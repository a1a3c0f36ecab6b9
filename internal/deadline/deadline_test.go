package deadline

import (
	"errors"
	"testing"
	"time"
)

var grace = 15 * time.Minute

func TestCompute_SameDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 6, 0, 0, 0, time.Local)

	armAt, forfeitAt, err := Compute("07:00", grace, now)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	want := time.Date(2025, 6, 10, 7, 0, 0, 0, time.Local)
	if !armAt.Equal(want) {
		t.Errorf("Expected armAt %v, got %v", want, armAt)
	}
	if got := forfeitAt.Sub(armAt); got != grace {
		t.Errorf("Expected forfeitAt-armAt == %v, got %v", grace, got)
	}
}

func TestCompute_RollsToNextDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.Local)

	armAt, _, err := Compute("07:00", grace, now)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	want := time.Date(2025, 6, 11, 7, 0, 0, 0, time.Local)
	if !armAt.Equal(want) {
		t.Errorf("Expected armAt %v (next day), got %v", want, armAt)
	}
}

func TestCompute_ExactNowRollsForward(t *testing.T) {
	now := time.Date(2025, 6, 10, 7, 0, 0, 0, time.Local)

	armAt, _, err := Compute("07:00", grace, now)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	// An alarm at exactly now is already in the past for scheduling purposes.
	want := time.Date(2025, 6, 11, 7, 0, 0, 0, time.Local)
	if !armAt.Equal(want) {
		t.Errorf("Expected armAt %v, got %v", want, armAt)
	}
}

func TestCompute_GraceIsExact(t *testing.T) {
	now := time.Date(2025, 6, 10, 6, 0, 0, 0, time.Local)

	for _, alarm := range []string{"00:00", "06:01", "12:30", "23:59"} {
		armAt, forfeitAt, err := Compute(alarm, grace, now)
		if err != nil {
			t.Fatalf("Compute(%q) returned error: %v", alarm, err)
		}
		if got := forfeitAt.Sub(armAt); got != grace {
			t.Errorf("Compute(%q): expected grace %v, got %v", alarm, grace, got)
		}
	}
}

func TestCompute_InvalidFormat(t *testing.T) {
	now := time.Now()

	invalid := []string{"", "7", "7am", "24:00", "12:60", "ab:cd", "12:30:00", "-1:30"}
	for _, alarm := range invalid {
		if _, _, err := Compute(alarm, grace, now); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Errorf("Compute(%q): expected ErrInvalidTimeFormat, got %v", alarm, err)
		}
	}
}
