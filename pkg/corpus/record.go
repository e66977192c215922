package corpus

import (
	"fmt"
	"strings"
)

// FallbackIntent is the sentinel intent used when nothing matches. The
// sentinel record may have no utterances and is never indexed.
const FallbackIntent = "None"

// Record is one trained intent: the phrases that trigger it, the candidate
// replies, and optional conversational context wiring. Context gates the
// intent ("only valid while this context is active"); SetContext activates
// a context when the intent is selected.
type Record struct {
	Intent     string   `json:"intent"`
	Utterances []string `json:"utterances"`
	Answers    []string `json:"answers"`
	Context    string   `json:"context,omitempty"`
	SetContext string   `json:"setContext,omitempty"`
}

// FollowUpOnly reports whether the record is only valid as a follow-up
// inside its own context.
func (r *Record) FollowUpOnly() bool {
	return r.Context != "" && r.SetContext == ""
}

// Normalize lowercases and trims a phrase the same way for indexing and
// for incoming messages.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *Record) normalize() {
	out := r.Utterances[:0]
	for _, u := range r.Utterances {
		u = Normalize(u)
		if u != "" {
			out = append(out, u)
		}
	}
	r.Utterances = out
	r.Context = strings.TrimSpace(r.Context)
	r.SetContext = strings.TrimSpace(r.SetContext)
}

func (r *Record) validate() error {
	if strings.TrimSpace(r.Intent) == "" {
		return fmt.Errorf("record has empty intent id")
	}
	if len(r.Answers) == 0 {
		return fmt.Errorf("intent %q has no answers", r.Intent)
	}
	if len(r.Utterances) == 0 && r.Intent != FallbackIntent {
		return fmt.Errorf("intent %q has no utterances", r.Intent)
	}
	return nil
}

// mergeRecords folds records sharing an intent id into one. Utterances and
// answers are concatenated in input order and deduplicated. The first
// non-empty Context/SetContext wins; two different non-empty values for
// the same intent are a load error.
func mergeRecords(records []Record) ([]Record, error) {
	merged := make([]Record, 0, len(records))
	index := make(map[string]int, len(records))

	for _, rec := range records {
		i, seen := index[rec.Intent]
		if !seen {
			index[rec.Intent] = len(merged)
			merged = append(merged, Record{
				Intent:     rec.Intent,
				Utterances: dedup(nil, rec.Utterances),
				Answers:    dedup(nil, rec.Answers),
				Context:    rec.Context,
				SetContext: rec.SetContext,
			})
			continue
		}

		dst := &merged[i]
		dst.Utterances = dedup(dst.Utterances, rec.Utterances)
		dst.Answers = dedup(dst.Answers, rec.Answers)

		if rec.Context != "" {
			if dst.Context != "" && dst.Context != rec.Context {
				return nil, fmt.Errorf("intent %q redefined with conflicting context %q vs %q",
					rec.Intent, dst.Context, rec.Context)
			}
			dst.Context = rec.Context
		}
		if rec.SetContext != "" {
			if dst.SetContext != "" && dst.SetContext != rec.SetContext {
				return nil, fmt.Errorf("intent %q redefined with conflicting setContext %q vs %q",
					rec.Intent, dst.SetContext, rec.SetContext)
			}
			dst.SetContext = rec.SetContext
		}
	}

	return merged, nil
}

func dedup(dst, src []string) []string {
	seen := make(map[string]bool, len(dst)+len(src))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}
