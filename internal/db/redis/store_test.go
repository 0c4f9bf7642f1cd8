package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/reag/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return newStore(c), c
}

func asOpError(t *testing.T, err error, op string) *db.OpError {
	t.Helper()
	var opErr *db.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *db.OpError, got %v", err)
	}
	if opErr.Op != op {
		t.Errorf("op = %q, want %q", opErr.Op, op)
	}
	return opErr
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(context.DeadlineExceeded)),
	)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	err := s.Ping(context.Background())
	asOpError(t, err, db.OpPing)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause lost: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "db PING: ") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestWaitForReady_RecoversAfterFailures(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("connection refused"))).Times(2),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)

	if err := s.WaitForReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("last ping error missing: %v", err)
	}
}

func TestCounter(t *testing.T) {
	tests := []struct {
		name    string
		result  rueidis.RedisResult
		want    int64
		wantErr bool
	}{
		{"present", mock.Result(mock.RedisBlobString("42")), 42, false},
		{"missing", mock.Result(mock.RedisNil()), 0, false},
		{"not a number", mock.Result(mock.RedisBlobString("abc")), 0, true},
		{"network error", mock.ErrorResult(errors.New("connection reset")), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("GET", "tokens")).Return(tt.result)

			got, err := s.Counter(context.Background(), "tokens")
			if tt.wantErr {
				if opErr := asOpError(t, err, db.OpGet); opErr.Key != "tokens" {
					t.Errorf("key = %q", opErr.Key)
				}
				return
			}
			if err != nil {
				t.Fatalf("Counter: %v", err)
			}
			if got != tt.want {
				t.Errorf("Counter = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAddToCounter_PipelinesExpire(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("INCRBY", "tokens", "5"),
			mock.Match("EXPIRE", "tokens", "300", "NX"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(17)),
			mock.Result(mock.RedisInt64(0)),
		})

	n, err := s.AddToCounter(context.Background(), "tokens", 5, 5*time.Minute)
	if err != nil {
		t.Fatalf("AddToCounter: %v", err)
	}
	if n != 17 {
		t.Errorf("new value = %d, want 17", n)
	}
}

func TestAddToCounter_WithoutTTL(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "tokens", "3")).
		Return(mock.Result(mock.RedisInt64(3)))

	if n, err := s.AddToCounter(context.Background(), "tokens", 3, 0); err != nil || n != 3 {
		t.Fatalf("AddToCounter = %d, %v", n, err)
	}
}

func TestAddToCounter_Errors(t *testing.T) {
	t.Run("incrby", func(t *testing.T) {
		s, c := newMockStore(t)
		c.EXPECT().DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).Return([]rueidis.RedisResult{
			mock.ErrorResult(errors.New("READONLY")),
			mock.ErrorResult(errors.New("READONLY")),
		})

		_, err := s.AddToCounter(context.Background(), "tokens", 1, time.Hour)
		asOpError(t, err, db.OpIncrBy)
	})

	t.Run("expire", func(t *testing.T) {
		s, c := newMockStore(t)
		c.EXPECT().DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(9)),
			mock.ErrorResult(errors.New("timeout")),
		})

		n, err := s.AddToCounter(context.Background(), "tokens", 1, time.Hour)
		asOpError(t, err, db.OpExpire)
		if n != 9 {
			t.Errorf("value after applied increment = %d, want 9", n)
		}
	})
}
