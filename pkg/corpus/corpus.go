package corpus

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Options tunes the fuzzy phase of Resolve.
type Options struct {
	// FuzzyScoreLimit is the worst acceptable fuzzy score. Candidates
	// scoring above it are rejected.
	FuzzyScoreLimit float64
	// ScopedMargin is how much better a global candidate must score to
	// override the context-scoped candidate.
	ScopedMargin float64
}

func DefaultOptions() Options {
	return Options{
		FuzzyScoreLimit: 0.4,
		ScopedMargin:    0.05,
	}
}

// Match is the outcome of resolving one message. Score is in [0,1],
// lower is better; exact matches score 0. A fallback match carries the
// sentinel record, or a nil Record when the corpus has none.
type Match struct {
	Record   *Record
	Score    float64
	Exact    bool
	Fallback bool
}

// Intent returns the matched intent id, or the sentinel id for a fallback
// without a sentinel record.
func (m Match) Intent() string {
	if m.Record == nil {
		return FallbackIntent
	}
	return m.Record.Intent
}

// Corpus is the immutable matching engine built once at startup. It is
// safe for concurrent readers; nothing mutates it after New returns.
type Corpus struct {
	records []Record
	opts    Options

	exact       map[string]*Record
	scopedExact map[string]map[string]*Record
	global      *fuzzyIndex
	scoped      map[string]*fuzzyIndex
	fallback    *Record
}

// New merges, validates and indexes the given records.
func New(records []Record, opts Options) (*Corpus, error) {
	if opts.FuzzyScoreLimit <= 0 {
		opts.FuzzyScoreLimit = DefaultOptions().FuzzyScoreLimit
	}
	if opts.ScopedMargin <= 0 {
		opts.ScopedMargin = DefaultOptions().ScopedMargin
	}

	for i := range records {
		records[i].normalize()
	}
	merged, err := mergeRecords(records)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	for i := range merged {
		if err := merged[i].validate(); err != nil {
			return nil, err
		}
	}

	c := &Corpus{
		records:     merged,
		opts:        opts,
		exact:       make(map[string]*Record),
		scopedExact: make(map[string]map[string]*Record),
		global:      &fuzzyIndex{},
		scoped:      make(map[string]*fuzzyIndex),
	}

	for i := range c.records {
		rec := &c.records[i]
		if rec.Intent == FallbackIntent {
			c.fallback = rec
			continue
		}

		for _, u := range rec.Utterances {
			// First record owning an utterance wins.
			if _, taken := c.exact[u]; !taken {
				c.exact[u] = rec
			}
			c.global.add(u, rec)
		}

		for _, ctx := range recordContexts(rec) {
			scopedExact := c.scopedExact[ctx]
			if scopedExact == nil {
				scopedExact = make(map[string]*Record)
				c.scopedExact[ctx] = scopedExact
			}
			idx := c.scoped[ctx]
			if idx == nil {
				idx = &fuzzyIndex{}
				c.scoped[ctx] = idx
			}
			for _, u := range rec.Utterances {
				if _, taken := scopedExact[u]; !taken {
					scopedExact[u] = rec
				}
				idx.add(u, rec)
			}
		}
	}

	return c, nil
}

func recordContexts(rec *Record) []string {
	var ctxs []string
	if rec.Context != "" {
		ctxs = append(ctxs, rec.Context)
	}
	if rec.SetContext != "" && rec.SetContext != rec.Context {
		ctxs = append(ctxs, rec.SetContext)
	}
	return ctxs
}

// Resolve matches a message against the corpus. currentContext scopes the
// search; pass "" when no context is active.
func (c *Corpus) Resolve(message, currentContext string) Match {
	msg := Normalize(message)
	if msg == "" {
		return c.fallbackMatch()
	}

	// Exact phase. An exact hit always beats fuzzy, but a follow-up-only
	// record found outside its context is discarded, not retried.
	if rec := c.exactLookup(msg, currentContext); rec != nil {
		if !gate(rec, currentContext) {
			return c.fallbackMatch()
		}
		return Match{Record: rec, Score: 0, Exact: true}
	}

	// Fuzzy phase: best scoped candidate vs best global candidate. The
	// scoped hit wins ties; the global one must be meaningfully better.
	var (
		winner *Record
		score  float64
		found  bool
	)
	if currentContext != "" {
		if idx := c.scoped[currentContext]; idx != nil {
			winner, score, found = idx.search(msg)
		}
	}
	if globalRec, globalScore, ok := c.global.search(msg); ok {
		if !found || globalScore < score-c.opts.ScopedMargin {
			winner, score, found = globalRec, globalScore, true
		}
	}

	if !found || score > c.opts.FuzzyScoreLimit || !gate(winner, currentContext) {
		return c.fallbackMatch()
	}
	return Match{Record: winner, Score: score}
}

// gate rejects follow-up-only records outside their own context.
func gate(rec *Record, currentContext string) bool {
	if !rec.FollowUpOnly() {
		return true
	}
	return rec.Context == currentContext
}

func (c *Corpus) exactLookup(msg, currentContext string) *Record {
	if currentContext != "" {
		return c.scopedExact[currentContext][msg]
	}
	return c.exact[msg]
}

func (c *Corpus) fallbackMatch() Match {
	return Match{Record: c.fallback, Fallback: true}
}

// Fallback returns the sentinel record, or nil if the corpus has none.
func (c *Corpus) Fallback() *Record {
	return c.fallback
}

// Get looks up a record by intent id.
func (c *Corpus) Get(intent string) (*Record, bool) {
	for i := range c.records {
		if c.records[i].Intent == intent {
			return &c.records[i], true
		}
	}
	return nil, false
}

// Len is the number of distinct intents, sentinel included.
func (c *Corpus) Len() int {
	return len(c.records)
}

func (c *Corpus) UtteranceCount() int {
	n := 0
	for i := range c.records {
		n += len(c.records[i].Utterances)
	}
	return n
}

func (c *Corpus) AnswerCount() int {
	n := 0
	for i := range c.records {
		n += len(c.records[i].Answers)
	}
	return n
}

// Contexts lists the distinct context values the corpus knows, sorted.
func (c *Corpus) Contexts() []string {
	ctxs := make([]string, 0, len(c.scoped))
	for ctx := range c.scoped {
		ctxs = append(ctxs, ctx)
	}
	sort.Strings(ctxs)
	return ctxs
}

type fuzzyEntry struct {
	utterance string
	record    *Record
}

// fuzzyIndex scores candidates by normalized Levenshtein distance:
// distance over the longer phrase length, so 0 is identical and 1 shares
// nothing. Deterministic for identical inputs; earlier entries win ties.
type fuzzyIndex struct {
	entries []fuzzyEntry
}

func (f *fuzzyIndex) add(utterance string, rec *Record) {
	f.entries = append(f.entries, fuzzyEntry{utterance: utterance, record: rec})
}

func (f *fuzzyIndex) search(msg string) (*Record, float64, bool) {
	var (
		best      *Record
		bestScore float64
		found     bool
	)
	for _, e := range f.entries {
		s := similarity(msg, e.utterance)
		if !found || s < bestScore {
			best, bestScore, found = e.record, s, true
		}
	}
	return best, bestScore, found
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
