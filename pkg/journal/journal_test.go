package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/fluxorio/reactive/pkg/rx"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestSQLiteJournal_AppendReplayInOrder(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	for _, p := range []string{"a", "b", "c"} {
		if err := j.Append(ctx, "t", []byte(p)); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if err := j.Append(ctx, "other", []byte("x")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	var got []string
	err := j.Replay(ctx, "t", func(payload []byte) error {
		got = append(got, string(payload))
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestSQLiteJournal_ReplayStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	_ = j.Append(ctx, "t", []byte("a"))
	_ = j.Append(ctx, "t", []byte("b"))

	boom := errors.New("stop")
	calls := 0
	err := j.Replay(ctx, "t", func([]byte) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected callback error surfaced, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected replay stopped after first callback, got %d calls", calls)
	}
}

func TestJournaledSubject_ReplaysHistoryToLateSubscriber(t *testing.T) {
	ctx := context.Background()
	s := NewJournaledSubject[int]("t", openTestJournal(t))

	if err := s.Next(ctx, 1); err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if err := s.Next(ctx, 2); err != nil {
		t.Fatalf("next failed: %v", err)
	}

	var got []int
	if _, err := s.Subscribe(ctx, rx.OnNext(func(v int) { got = append(got, v) })); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := s.Next(ctx, 3); err != nil {
		t.Fatalf("next failed: %v", err)
	}

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestJournaledSubject_HistorySurvivesTermination(t *testing.T) {
	ctx := context.Background()
	s := NewJournaledSubject[int]("t", openTestJournal(t))

	_ = s.Next(ctx, 1)
	s.Error(errors.New("boom"))

	var got []int
	var seen error
	sub, err := s.Subscribe(ctx, rx.OnNextError(
		func(v int) { got = append(got, v) },
		func(e error) { seen = e },
	))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected journaled history before the terminal, got %v", got)
	}
	if seen == nil || seen.Error() != "boom" {
		t.Errorf("expected stored error replayed, got %v", seen)
	}
	if !sub.IsDisposed() {
		t.Error("expected disposed handle from a terminated stream")
	}
}

func TestJournaledSubject_DropsAfterTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewJournaledSubject[int]("t", openTestJournal(t))
	s.Complete()

	if err := s.Next(ctx, 1); err != nil {
		t.Errorf("expected post-terminal next to be a silent no-op, got %v", err)
	}
	if !s.IsTerminated() {
		t.Error("expected terminated")
	}
}
