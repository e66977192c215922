package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lumiebot/lumie/pkg/corpus"
	"github.com/lumiebot/lumie/pkg/logger"
	"github.com/lumiebot/lumie/pkg/ratelimit"
	"github.com/lumiebot/lumie/pkg/session"
)

// ErrEmptyMessage rejects a message that is blank after normalization.
// No per-user state is touched in that case.
var ErrEmptyMessage = errors.New("message is empty")

// EchoIntent is reported when nothing matched and the corpus has no
// sentinel record to answer with.
const EchoIntent = "Echo"

// ContextNone is the response context when no conversational context is
// active; ContextRateLimit marks a throttled turn.
const (
	ContextNone      = "none"
	ContextRateLimit = "rate-limit"
)

// Response is the contract returned for every accepted message.
// Confidence is 1 for exact matches, the fuzzy score for fuzzy matches
// and 0 for fallback or throttled turns.
type Response struct {
	Reply      string  `json:"reply"`
	Context    string  `json:"context"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Engine sequences one message through rate limiting, session state,
// intent resolution, context transition and answer selection.
type Engine struct {
	corpus   *corpus.Corpus
	sessions *session.Store
	limiter  *ratelimit.Limiter
	selector *AnswerSelector
}

func NewEngine(c *corpus.Corpus, sessions *session.Store, limiter *ratelimit.Limiter, selector *AnswerSelector) *Engine {
	return &Engine{
		corpus:   c,
		sessions: sessions,
		limiter:  limiter,
		selector: selector,
	}
}

// Handle processes one message for one user. Turns for the same user are
// serialized on the store's per-user lock; turns for different users run
// in parallel.
func (e *Engine) Handle(ctx context.Context, userID, message string) (Response, error) {
	_ = ctx // the hot path never blocks on I/O

	if strings.TrimSpace(message) == "" {
		return Response{}, ErrEmptyMessage
	}

	turnID := "turn-" + uuid.NewString()

	lock := e.sessions.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	if dec := e.limiter.Admit(userID); !dec.Allowed {
		logger.InfoCF("engine", "Rate limited", map[string]interface{}{
			"turn_id":  turnID,
			"user_id":  userID,
			"retry_at": dec.RetryAt.Format("15:04:05"),
		})
		return Response{
			Reply:   fmt.Sprintf("You're sending messages too fast. Please wait until %s.", dec.RetryAt.Format("15:04")),
			Context: ContextRateLimit,
		}, nil
	}

	s := e.sessions.GetOrCreate(userID)
	match := e.corpus.Resolve(message, s.CurrentContext)

	// Every matched record drives the context transition, the sentinel
	// included (it counts as a general intent and releases the context).
	// Only the record-less echo path leaves context untouched.
	if match.Record != nil {
		s.CurrentContext = nextContext(s.CurrentContext, match.Record)
	}

	resp := Response{
		Intent:  match.Intent(),
		Context: contextLabel(s.CurrentContext),
	}
	switch {
	case match.Exact:
		resp.Confidence = 1
	case !match.Fallback:
		resp.Confidence = match.Score
	}

	if match.Record != nil {
		resp.Reply = e.selector.Pick(s, match.Record.Answers)
	} else {
		resp.Intent = EchoIntent
		resp.Reply = fmt.Sprintf("You said: %q", strings.TrimSpace(message))
	}

	e.sessions.Touch(s)

	logger.InfoCF("engine", "Resolved message", map[string]interface{}{
		"turn_id":    turnID,
		"user_id":    userID,
		"intent":     resp.Intent,
		"context":    resp.Context,
		"confidence": resp.Confidence,
		"fallback":   match.Fallback,
	})

	return resp, nil
}

func contextLabel(ctx string) string {
	if ctx == "" {
		return ContextNone
	}
	return ctx
}
