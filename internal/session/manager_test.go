package session

import (
	"context"
	"testing"
	"time"

	"github.com/wakefi/wakefid/internal/domain"
)

func TestManager_GetCreatesOnce(t *testing.T) {
	m := NewManager(Deps{
		Scheduler:        &fakeScheduler{},
		Streaks:          &fakeStreaks{},
		Provider:         &staticProvider{content: testContent()},
		ChallengeSeconds: 30,
	})

	s1 := m.Get("0.0.1234")
	s2 := m.Get("0.0.1234")
	if s1 != s2 {
		t.Error("Expected the same session for the same account")
	}

	other := m.Get("0.0.5678")
	if other == s1 {
		t.Error("Expected distinct sessions per account")
	}
}

func TestRingWatcher_FlipsArmedToRinging(t *testing.T) {
	sched := &fakeScheduler{
		armAt:    time.Now().Add(-time.Second),
		deadline: time.Now().Add(15 * time.Minute),
	}
	m := NewManager(Deps{
		Scheduler:        sched,
		Streaks:          &fakeStreaks{},
		Provider:         &staticProvider{content: testContent()},
		ChallengeSeconds: 30,
	})

	s := m.Get("0.0.1234")
	if _, err := s.Arm(context.Background(), 2.5, "07:00", "c-1"); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartRingWatcher(ctx, 5*time.Millisecond)

	deadline := time.After(time.Second)
	for s.State() != domain.StateRinging {
		select {
		case <-deadline:
			t.Fatal("Ring watcher never flipped the session to ringing")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestChallengeExpiry_BurnsWithNoCancel(t *testing.T) {
	sched := &fakeScheduler{}
	streaks := &fakeStreaks{streak: 4, best: 4}
	m := NewManager(Deps{
		Scheduler:        sched,
		Streaks:          streaks,
		Provider:         &staticProvider{content: testContent()},
		ChallengeSeconds: 2,
		TickInterval:     5 * time.Millisecond,
	})
	s := m.Get("0.0.1234")
	driveToVerifying(t, s)

	deadline := time.After(time.Second)
	for s.State() != domain.StateBurned {
		select {
		case <-deadline:
			t.Fatalf("Expected burned after countdown expiry, still %s", s.State())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if sched.cancels() != 0 {
		t.Errorf("Expected no cancellation on expiry, got %d", sched.cancels())
	}
	_, losses := streaks.counts()
	if losses != 1 {
		t.Errorf("Expected one loss recorded, got %d", losses)
	}

	snap := s.Snapshot()
	if snap.Resolution == nil || snap.Resolution.Outcome != domain.OutcomeTimedOut {
		t.Errorf("Expected timed_out resolution, got %+v", snap.Resolution)
	}
}
