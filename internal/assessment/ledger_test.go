package assessment

import "testing"

func failed(ordinal int, at int64) Attempt {
	return Attempt{Ordinal: ordinal, Verdict: VerdictFailed, SubmittedAt: at}
}

func TestLatestPicksBySubmissionTime(t *testing.T) {
	if _, ok := Latest(nil); ok {
		t.Fatal("no attempts should yield none")
	}
	a := failed(1, 100)
	b := failed(2, 200)
	got, ok := Latest([]Attempt{b, a})
	if !ok || got.Ordinal != 2 {
		t.Fatalf("latest = %+v", got)
	}
	// same-second submissions: ordinal breaks the tie
	c := failed(3, 200)
	got, _ = Latest([]Attempt{c, a, b})
	if got.Ordinal != 3 {
		t.Fatalf("tie-break latest = %+v", got)
	}
}

func TestCanStartNewAttempt(t *testing.T) {
	capped := Test{MaxAttempts: 2}
	unlimited := Test{MaxAttempts: 0}

	cases := []struct {
		name     string
		test     Test
		attempts []Attempt
		want     bool
	}{
		{"no attempt yet", capped, nil, true},
		{"one failed, quota left", capped, []Attempt{failed(1, 100)}, true},
		{"two failed, quota exhausted", capped, []Attempt{failed(1, 100), failed(2, 200)}, false},
		{"unlimited quota", unlimited, []Attempt{failed(1, 100), failed(2, 200), failed(3, 300)}, true},
		{
			"passed forecloses even with quota left",
			capped,
			[]Attempt{{Ordinal: 1, Verdict: VerdictPassed, SubmittedAt: 100}},
			false,
		},
		{
			"pending forecloses until resolved",
			unlimited,
			[]Attempt{{Ordinal: 1, Verdict: VerdictPending, SubmittedAt: 100}},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanStartNewAttempt(tc.test, tc.attempts); got != tc.want {
				t.Fatalf("CanStartNewAttempt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCapReadLive(t *testing.T) {
	attempts := []Attempt{failed(1, 100), failed(2, 200)}
	if CanStartNewAttempt(Test{MaxAttempts: 2}, attempts) {
		t.Fatal("cap of 2 must close after two failures")
	}
	// the admin raises the cap; eligibility reopens without any reset
	if !CanStartNewAttempt(Test{MaxAttempts: 3}, attempts) {
		t.Fatal("raised cap must reopen eligibility")
	}
}

func TestRetakeOffered(t *testing.T) {
	if RetakeOffered(failed(1, 100)) {
		t.Fatal("no retake without the admin grant, even with quota left")
	}
	granted := failed(1, 100)
	granted.RetakeAllowed = true
	if !RetakeOffered(granted) {
		t.Fatal("granted failed attempt should offer a retake")
	}
	pending := Attempt{Verdict: VerdictPending, RetakeAllowed: true}
	if RetakeOffered(pending) {
		t.Fatal("pending attempt cannot offer a retake")
	}
}

func TestUnlocked(t *testing.T) {
	if Unlocked(false, 100) {
		t.Fatal("offline course must never unlock")
	}
	if Unlocked(true, 99) {
		t.Fatal("99% gates the same as 0%")
	}
	if !Unlocked(true, 100) {
		t.Fatal("online at 100% must unlock")
	}
}
