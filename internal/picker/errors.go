package picker

import "fmt"

// Candidate domains reported by InsufficientCandidatesError.
const (
	DomainMain    = "main"
	DomainSpecial = "special"
)

// InsufficientCandidatesError reports that the candidate pools cannot produce a
// full batch: either too few numbers survived the recency filter, or no
// acceptable combination was found within the attempt budget (Attempts > 0).
type InsufficientCandidatesError struct {
	Domain     string
	Candidates int
	Required   int
	Attempts   int
}

func (e *InsufficientCandidatesError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("no valid %s-number combination found in %d attempts from %d candidates",
			e.Domain, e.Attempts, e.Candidates)
	}
	return fmt.Sprintf("insufficient %s-number candidates: have %d, need %d",
		e.Domain, e.Candidates, e.Required)
}
