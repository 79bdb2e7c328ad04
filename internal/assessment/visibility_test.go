package assessment

import "testing"

func gradedAttempt(v Verdict) Attempt {
	return Attempt{
		ID:         "a1",
		TestID:     "t1",
		Ordinal:    1,
		Score:      6.5,
		Percentage: 65.4321,
		Verdict:    v,
		Items: []ItemScore{
			{QuestionID: "q1", Earned: 1, Max: 1, Correct: true},
			{QuestionID: "q2", Earned: 0, Max: 1, Correct: false},
		},
	}
}

func TestVisibilityWithheldPlatformWide(t *testing.T) {
	tst := Test{ID: "t1", ShowResults: false}
	// even a passed attempt gets nothing but the acknowledgment
	v := BuildResultView(tst, gradedAttempt(VerdictPassed))
	if v.Status != ResultStatusSubmitted {
		t.Fatalf("status = %s", v.Status)
	}
	if v.Score != nil || v.Percentage != nil || v.Verdict != nil || len(v.Items) != 0 {
		t.Fatalf("withheld view leaked detail: %+v", v)
	}
}

func TestVisibilityPendingAwaitsResults(t *testing.T) {
	tst := Test{ID: "t1", ShowResults: true}
	v := BuildResultView(tst, gradedAttempt(VerdictPending))
	if v.Status != ResultStatusAwaiting {
		t.Fatalf("status = %s", v.Status)
	}
	if v.Score != nil || v.Verdict != nil {
		t.Fatalf("pending view leaked score or verdict: %+v", v)
	}
}

func TestVisibilityFullDetail(t *testing.T) {
	tst := Test{
		ID:          "t1",
		ShowResults: true,
		Questions: []Question{
			{ID: "q1", AnswerKey: []string{"a"}},
			{ID: "q2", AnswerKey: []string{"b"}},
		},
	}
	v := BuildResultView(tst, gradedAttempt(VerdictFailed))
	if v.Status != ResultStatusGraded {
		t.Fatalf("status = %s", v.Status)
	}
	if v.Percentage == nil || *v.Percentage != "65.4" {
		t.Fatalf("percentage = %v, want 65.4 (one decimal)", v.Percentage)
	}
	if len(v.Items) != 2 {
		t.Fatalf("items = %d", len(v.Items))
	}
	if v.Items[0].CorrectAnswer != nil {
		t.Fatal("correct items must not reveal the key")
	}
	if len(v.Items[1].CorrectAnswer) == 0 {
		t.Fatal("failed items reveal the correct answer")
	}
}

func TestVisibilityRetakeFlagDrivenByGrant(t *testing.T) {
	tst := Test{ID: "t1", ShowResults: true}
	a := gradedAttempt(VerdictFailed)
	if v := BuildResultView(tst, a); v.RetakeOffered {
		t.Fatal("retake must default to not offered")
	}
	a.RetakeAllowed = true
	if v := BuildResultView(tst, a); !v.RetakeOffered {
		t.Fatal("admin grant should surface the retake offer")
	}
}
