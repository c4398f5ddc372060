package speech

import "strings"

// Voices holds the two persona voice identities.
type Voices struct {
	Tutor     string
	CoStudent string
}

// tutorMarkers are phrases that indicate the model answered in tutor mode,
// giving a step-by-step solution rather than asking a co-student question.
var tutorMarkers = []string{
	"here's how to solve it",
	"step 1:",
	"step 2:",
	"step 3:",
	"first,",
	"second,",
	"third,",
	"the answer is",
	"so the answer is",
	"here's the solution",
	"let me explain",
	"the solution is",
	"to solve this",
	"we need to",
	"divide both sides",
	"subtract",
	"add",
	"multiply",
	"the final answer",
}

// Select picks a voice identity from reply content. Any tutor marker in the
// lowercased text selects the tutor voice; otherwise the co-student voice
// is used. Pure function, first match wins.
func (v Voices) Select(text string) string {
	if text == "" {
		return v.CoStudent
	}
	lower := strings.ToLower(text)
	for _, marker := range tutorMarkers {
		if strings.Contains(lower, marker) {
			return v.Tutor
		}
	}
	return v.CoStudent
}
