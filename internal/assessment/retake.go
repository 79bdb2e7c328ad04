package assessment

// RetakeOffered decides whether a further attempt is currently offered
// after the latest one. This is an explicit admin grant, not an
// automatic consequence of remaining quota: the default after a failed
// attempt is no retake. Quota ("can the ledger accept another attempt")
// and the grant ("is a retake offered right now") are independent facts;
// submission acceptance requires both, see Service.Submit.
func RetakeOffered(latest Attempt) bool {
	return latest.Verdict == VerdictFailed && latest.RetakeAllowed
}
