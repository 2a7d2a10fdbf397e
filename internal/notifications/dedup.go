package notifications

// Candidate is a notification that the resolver would like to send
type Candidate struct {
	RecipientID string
	Verb        string
	ActorID     string
}

// Dedup keeps the first candidate for each recipient and drops the rest.
// Rules emit candidates in priority order, so the first one is the most
// important notification for that recipient.
func Dedup(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	result := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.RecipientID] {
			continue
		}
		seen[c.RecipientID] = true
		result = append(result, c)
	}
	return result
}
