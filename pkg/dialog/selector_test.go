package dialog

import (
	"math/rand"
	"testing"

	"github.com/lumiebot/lumie/pkg/session"
)

func seededSelector(window int) *AnswerSelector {
	return NewAnswerSelector(window, rand.New(rand.NewSource(1)))
}

func TestPick_NeverRepeatsWithinWindow(t *testing.T) {
	answers := []string{"a", "b", "c", "d", "e"}
	sel := seededSelector(4)
	s := &session.Session{}

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		choice := sel.Pick(s, answers)
		if seen[choice] {
			t.Fatalf("pick %d repeated %q within the window", i, choice)
		}
		seen[choice] = true
	}
}

func TestPick_NoImmediateRepeatWithTwoAnswers(t *testing.T) {
	answers := []string{"yes", "no"}
	sel := seededSelector(5)
	s := &session.Session{}

	prev := sel.Pick(s, answers)
	for i := 0; i < 5; i++ {
		choice := sel.Pick(s, answers)
		if choice == prev {
			t.Fatalf("pick %d returned %q twice in a row", i, choice)
		}
		prev = choice
	}
}

func TestPick_ForcedRepeatAvoidsLastAnswer(t *testing.T) {
	answers := []string{"a", "b", "c"}
	sel := seededSelector(5)
	s := &session.Session{}

	// Exhaust the whole answer set so every later pick is a forced
	// repeat, then keep picking: the previous answer must never come
	// straight back.
	prev := ""
	for i := 0; i < 20; i++ {
		choice := sel.Pick(s, answers)
		if choice == prev {
			t.Fatalf("pick %d returned %q twice in a row", i, choice)
		}
		prev = choice
	}
}

func TestPick_ForcedRepeatWhenExhausted(t *testing.T) {
	answers := []string{"only"}
	sel := seededSelector(5)
	s := &session.Session{}

	if got := sel.Pick(s, answers); got != "only" {
		t.Fatalf("first pick = %q", got)
	}
	// The single answer is in the recent window; a repeat is the only
	// option.
	if got := sel.Pick(s, answers); got != "only" {
		t.Fatalf("forced repeat pick = %q", got)
	}
}

func TestPick_RecordsIntoSessionWindow(t *testing.T) {
	sel := seededSelector(2)
	s := &session.Session{}

	sel.Pick(s, []string{"a"})
	sel.Pick(s, []string{"b"})
	sel.Pick(s, []string{"c"})

	if len(s.RecentAnswers) != 2 {
		t.Errorf("RecentAnswers = %v, want window of 2", s.RecentAnswers)
	}
}

func TestPick_EmptyAnswers(t *testing.T) {
	sel := seededSelector(5)
	if got := sel.Pick(&session.Session{}, nil); got != "" {
		t.Errorf("Pick on empty answers = %q, want empty", got)
	}
}

func TestPick_DeterministicWithSeededSource(t *testing.T) {
	answers := []string{"a", "b", "c"}

	run := func() []string {
		sel := NewAnswerSelector(3, rand.New(rand.NewSource(42)))
		s := &session.Session{}
		out := make([]string, 0, 3)
		for i := 0; i < 3; i++ {
			out = append(out, sel.Pick(s, answers))
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("seeded runs diverged: %v vs %v", first, second)
		}
	}
}
