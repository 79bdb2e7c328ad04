package enrollment

import (
	"context"
	"testing"
)

func withCompleted(n int) Enrollment {
	set := map[string]struct{}{}
	for i := 0; i < n; i++ {
		set[string(rune('a'+i))] = struct{}{}
	}
	return Enrollment{Status: StatusActive, CompletedLessonIDs: set}
}

func hintPtr(n int) *int { return &n }

func TestPercentFallbackOrder(t *testing.T) {
	cases := []struct {
		name  string
		e     Enrollment
		total int
		want  int
	}{
		{"lesson data authoritative", withCompleted(5), 10, 50},
		{"rounds", withCompleted(1), 3, 33},
		{"rounds up", withCompleted(2), 3, 67},
		{"clamps above 100", withCompleted(12), 10, 100},
		{"empty set counts as zero", withCompleted(0), 10, 0},
		{"no lesson data falls back to hint", Enrollment{ProgressHint: hintPtr(40)}, 10, 40},
		{"hint clamped", Enrollment{ProgressHint: hintPtr(130)}, 0, 100},
		{"negative hint ignored", Enrollment{ProgressHint: hintPtr(-1)}, 0, 0},
		{"zero total falls back to hint", withHint(withCompleted(5), 70), 0, 70},
		{"nothing known", Enrollment{}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Percent(tc.e, tc.total); got != tc.want {
				t.Fatalf("Percent = %d, want %d", got, tc.want)
			}
		})
	}
}

func withHint(e Enrollment, h int) Enrollment {
	e.ProgressHint = &h
	return e
}

func TestPercentLessonDataBeatsHint(t *testing.T) {
	e := withHint(withCompleted(5), 90)
	if got := Percent(e, 10); got != 50 {
		t.Fatalf("lesson data must win over the stored hint, got %d", got)
	}
}

func TestPercentIdempotent(t *testing.T) {
	e := withCompleted(7)
	a, b := Percent(e, 9), Percent(e, 9)
	if a != b {
		t.Fatalf("two identical calls disagreed: %d vs %d", a, b)
	}
}

func TestPercentMonotonic(t *testing.T) {
	const total = 10
	prev := -1
	for n := 0; n <= total+2; n++ {
		p := Percent(withCompleted(n), total)
		if p < prev {
			t.Fatalf("progress regressed from %d to %d at completed=%d", prev, p, n)
		}
		prev = p
	}
	if got := Percent(withCompleted(5), total); got != 50 {
		t.Fatalf("5/10 = %d, want 50", got)
	}
	if got := Percent(withCompleted(6), total); got != 60 {
		t.Fatalf("6/10 = %d, want 60", got)
	}
}

type countingGetter struct {
	calls int
	e     Enrollment
}

func (g *countingGetter) Get(ctx context.Context, userID, courseID string) (Enrollment, error) {
	g.calls++
	return g.e, nil
}

func TestCacheReadThroughAndInvalidate(t *testing.T) {
	g := &countingGetter{e: withCompleted(3)}
	c := NewCache(g)
	ctx := context.Background()

	if _, err := c.Get(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	if g.calls != 1 {
		t.Fatalf("expected one source read, got %d", g.calls)
	}

	c.Invalidate("u1", "c1")
	if _, err := c.Get(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	if g.calls != 2 {
		t.Fatalf("invalidate should force a refetch, got %d reads", g.calls)
	}
}
