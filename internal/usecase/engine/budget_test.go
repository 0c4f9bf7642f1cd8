package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/domain"
)

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected domain.ErrBudgetExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected domain.ErrBudgetExceeded for monthly limit, got %v", err)
	}
	if !strings.Contains(err.Error(), "monthly") {
		t.Errorf("expected monthly period in error, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 remaining, got %d / %d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)

	if daily := bt.RemainingDaily(); daily != 700 {
		t.Errorf("expected daily remaining 700, got %d", daily)
	}
	if monthly := bt.RemainingMonthly(); monthly != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", monthly)
	}

	bt.Record(5000)
	if daily := bt.RemainingDaily(); daily != 0 {
		t.Errorf("expected daily remaining clamped to 0, got %d", daily)
	}
}

func TestBudgetTracker_BelowLimitAllows(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error when below limit, got %v", err)
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionReject, zap.NewNop())
	day := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	bt.now = func() time.Time { return day }
	bt.lastDayReset = truncateToDay(day)
	bt.lastMonthReset = truncateToMonth(day)

	bt.Record(100)
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected rejection before rollover, got %v", err)
	}

	day = day.Add(2 * time.Hour) // April 1st
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected counters reset after rollover, got %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero usage, got %d / %d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

// --- Mocks ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

// --- Persistence tests ---

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockBudgetStore()

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	store.data[bt.dailyKey(bt.lastDayReset)] = 300
	store.data[bt.monthlyKey(bt.lastMonthReset)] = 5000

	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 10000, 100000, BudgetActionWarn, zap.NewNop())
	bt.WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}

	store.mu.Lock()
	daily := store.data[bt.dailyKey(bt.lastDayReset)]
	monthly := store.data[bt.monthlyKey(bt.lastMonthReset)]
	store.mu.Unlock()
	if daily != 300 || monthly != 300 {
		t.Errorf("expected store daily=300 monthly=300, got %d / %d", daily, monthly)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero usage on load error, got %d / %d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionWarn, zap.NewNop())
	bt.WithStore(context.Background(), store)

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(50)

	if bt.DailyUsed() != 50 {
		t.Errorf("expected daily_used=50 even with store error, got %d", bt.DailyUsed())
	}
}

func TestBudgetTracker_KeyFormat(t *testing.T) {
	bt := NewBudgetTracker("openai", 0, 0, BudgetActionWarn, zap.NewNop())
	at := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)

	if got := bt.dailyKey(at); got != "reag:budget:openai:daily:2026-07-04" {
		t.Errorf("dailyKey = %q", got)
	}
	if got := bt.monthlyKey(at); got != "reag:budget:openai:monthly:2026-07" {
		t.Errorf("monthlyKey = %q", got)
	}
}
