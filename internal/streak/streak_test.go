package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wakefi/wakefid/internal/domain"
)

// fakeRepo is an in-memory Repository covering the streak methods.
type fakeRepo struct {
	records map[string]*domain.StreakRecord
	events  []*domain.StakeEvent
	getErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*domain.StreakRecord)}
}

func (f *fakeRepo) GetStreak(_ context.Context, accountID string) (*domain.StreakRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.records[accountID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) UpsertStreak(_ context.Context, record *domain.StreakRecord) error {
	cp := *record
	if existing, ok := f.records[record.AccountID]; ok {
		// Mirror the SQLite upsert: monotonic best, sticky last_win_at.
		if existing.BestStreak > cp.BestStreak {
			cp.BestStreak = existing.BestStreak
		}
		if cp.LastWinAt == nil {
			cp.LastWinAt = existing.LastWinAt
		}
	}
	f.records[record.AccountID] = &cp
	return nil
}

func (f *fakeRepo) AppendStakeEvent(_ context.Context, event *domain.StakeEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) StakeTotals(_ context.Context, accountID string) (*domain.StakeTotals, error) {
	totals := &domain.StakeTotals{}
	for _, e := range f.events {
		if e.AccountID != accountID {
			continue
		}
		switch e.Kind {
		case domain.EventStaked:
			totals.TotalStaked += e.Amount
		case domain.EventRescued:
			totals.TotalRescued += e.Amount
		}
	}
	return totals, nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

func TestRead_FreshAccountIsZero(t *testing.T) {
	c := NewCounter(newFakeRepo(), nil)

	n, err := c.Read(context.Background(), "0.0.1234")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 for fresh account, got %d", n)
	}
}

func TestRecordWin_SevenInARow(t *testing.T) {
	c := NewCounter(newFakeRepo(), nil)
	ctx := context.Background()

	var last *domain.StreakRecord
	for i := 1; i <= 7; i++ {
		record, err := c.RecordWin(ctx, "0.0.1234")
		if err != nil {
			t.Fatalf("RecordWin #%d: %v", i, err)
		}
		if record.CurrentStreak != i {
			t.Errorf("Win #%d: expected streak %d, got %d", i, i, record.CurrentStreak)
		}
		last = record
	}

	if last.BestStreak < 7 {
		t.Errorf("Expected bestStreak >= 7, got %d", last.BestStreak)
	}
	if !last.AtMilestone() {
		t.Error("Expected streak 7 to be a milestone")
	}
	if last.LastWinAt == nil {
		t.Error("Expected lastWinAt to be set")
	}
}

func TestRecordLoss_ResetsButKeepsBest(t *testing.T) {
	repo := newFakeRepo()
	c := NewCounter(repo, nil)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := c.RecordWin(ctx, "0.0.1234"); err != nil {
			t.Fatalf("RecordWin: %v", err)
		}
	}

	n, err := c.RecordLoss(ctx, "0.0.1234")
	if err != nil {
		t.Fatalf("RecordLoss: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected RecordLoss to return 0, got %d", n)
	}

	record, err := repo.GetStreak(ctx, "0.0.1234")
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if record.CurrentStreak != 0 {
		t.Errorf("Expected streak 0 after loss, got %d", record.CurrentStreak)
	}
	if record.BestStreak != 7 {
		t.Errorf("Expected bestStreak 7 preserved, got %d", record.BestStreak)
	}
}

func TestRecordLoss_FreshAccount(t *testing.T) {
	c := NewCounter(newFakeRepo(), nil)

	n, err := c.RecordLoss(context.Background(), "0.0.9999")
	if err != nil {
		t.Fatalf("RecordLoss: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0, got %d", n)
	}
}

func TestRecordWin_PropagatesStoreError(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = errors.New("disk on fire")
	c := NewCounter(repo, nil)

	if _, err := c.RecordWin(context.Background(), "0.0.1234"); err == nil {
		t.Error("Expected store error to propagate")
	}
}

func TestRecordWin_UpdatesLastWinAt(t *testing.T) {
	repo := newFakeRepo()
	c := NewCounter(repo, nil)
	fixed := time.Date(2025, 6, 10, 7, 5, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	record, err := c.RecordWin(context.Background(), "0.0.1234")
	if err != nil {
		t.Fatalf("RecordWin: %v", err)
	}
	if record.LastWinAt == nil || !record.LastWinAt.Equal(fixed) {
		t.Errorf("Expected lastWinAt %v, got %v", fixed, record.LastWinAt)
	}
}
