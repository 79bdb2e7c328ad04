package assessment

// Ledger answers attempt-bookkeeping questions for one (student, test)
// pair. Attempts are whatever the store returned for that pair; Latest
// picks by submission time so the ledger doesn't depend on slice order.

// Latest returns the attempt with the greatest submission timestamp, or
// false if none exist. Ordinal breaks timestamp ties (same-second
// submissions land on identical unix stamps).
func Latest(attempts []Attempt) (Attempt, bool) {
	if len(attempts) == 0 {
		return Attempt{}, false
	}
	latest := attempts[0]
	for _, a := range attempts[1:] {
		if a.SubmittedAt > latest.SubmittedAt ||
			(a.SubmittedAt == latest.SubmittedAt && a.Ordinal > latest.Ordinal) {
			latest = a
		}
	}
	return latest, true
}

// CanStartNewAttempt is the quota-side eligibility rule:
//
//   - no attempt yet: eligible
//   - latest verdict passed: permanently foreclosed (passing ends the
//     assessment, remaining quota is irrelevant)
//   - latest verdict pending: foreclosed until resolved
//   - latest verdict failed: eligible while quota remains
//     (maxAttempts 0 = unlimited; the cap is read live, so raising it
//     after exhaustion re-opens this check)
//
// Quota eligibility alone does not offer a retake; see RetakeOffered.
func CanStartNewAttempt(t Test, attempts []Attempt) bool {
	latest, ok := Latest(attempts)
	if !ok {
		return true
	}
	if latest.Verdict != VerdictFailed {
		return false
	}
	return t.MaxAttempts == 0 || len(attempts) < t.MaxAttempts
}

// Resolved reports whether the assessment has concluded with a pass.
func Resolved(attempts []Attempt) bool {
	latest, ok := Latest(attempts)
	return ok && latest.Verdict == VerdictPassed
}
