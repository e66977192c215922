package dialog

import (
	"math/rand"
	"sync"
	"time"

	"github.com/lumiebot/lumie/pkg/session"
)

// AnswerSelector picks replies while avoiding the answers a user has
// heard recently. A forced repeat only happens once every candidate is
// inside the recent window.
type AnswerSelector struct {
	window int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAnswerSelector builds a selector with the given non-repetition
// window. A nil rng seeds from the current time; tests inject a seeded
// source to assert exact sequences.
func NewAnswerSelector(window int, rng *rand.Rand) *AnswerSelector {
	if window <= 0 {
		window = 5
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AnswerSelector{window: window, rng: rng}
}

// Pick chooses an answer for the session and records it in the session's
// recent window. Callers hold the per-user turn lock.
func (as *AnswerSelector) Pick(s *session.Session, answers []string) string {
	if len(answers) == 0 {
		return ""
	}

	recent := make(map[string]bool, len(s.RecentAnswers))
	for _, a := range s.RecentAnswers {
		recent[a] = true
	}

	available := make([]string, 0, len(answers))
	for _, a := range answers {
		if !recent[a] {
			available = append(available, a)
		}
	}
	if len(available) == 0 {
		// Every answer was heard recently; a repeat is unavoidable, but
		// never the one the user just heard when an alternative exists.
		available = answers
		if len(answers) >= 2 && len(s.RecentAnswers) > 0 {
			last := s.RecentAnswers[len(s.RecentAnswers)-1]
			notLast := make([]string, 0, len(answers))
			for _, a := range answers {
				if a != last {
					notLast = append(notLast, a)
				}
			}
			if len(notLast) > 0 {
				available = notLast
			}
		}
	}

	as.mu.Lock()
	choice := available[as.rng.Intn(len(available))]
	as.mu.Unlock()

	s.Remember(choice, as.window)
	return choice
}
