package session

import (
	"sync"
	"time"

	"github.com/lumiebot/lumie/pkg/logger"
)

// Session is the per-user conversational state: the answers recently given
// to them, whichever context is active, and when they were last seen.
type Session struct {
	UserID         string
	RecentAnswers  []string
	CurrentContext string
	LastSeen       time.Time
}

// Remember appends an answer to the recent window, evicting the oldest
// entry once the window is full.
func (s *Session) Remember(answer string, window int) {
	s.RecentAnswers = append(s.RecentAnswers, answer)
	if window > 0 && len(s.RecentAnswers) > window {
		s.RecentAnswers = s.RecentAnswers[len(s.RecentAnswers)-window:]
	}
}

// Config configures the session store.
type Config struct {
	SessionTTL       time.Duration
	ContextTTL       time.Duration
	MaxRecentAnswers int
}

// Store holds sessions keyed by user id. Expiry is checked lazily on
// every access: a session idle past SessionTTL is discarded and rebuilt;
// one idle past only ContextTTL keeps its identity and recent answers but
// loses its context. Sweep exists purely to bound memory for users that
// never return.
type Store struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	// Per-user turn locks. Entries are never removed: deleting a lock
	// another goroutine still holds would let two turns for the same
	// user interleave. One mutex per distinct user is cheap.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewStore(cfg Config) *Store {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.ContextTTL <= 0 || cfg.ContextTTL > cfg.SessionTTL {
		cfg.ContextTTL = 5 * time.Minute
	}
	if cfg.MaxRecentAnswers <= 0 {
		cfg.MaxRecentAnswers = 5
	}
	return &Store{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetClock replaces the time source, for tests.
func (st *Store) SetClock(now func() time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.now = now
}

// Lock returns the turn lock for userID. Callers hold it for the whole
// message turn so per-user state is never touched concurrently.
func (st *Store) Lock(userID string) *sync.Mutex {
	st.locksMu.Lock()
	defer st.locksMu.Unlock()
	l, ok := st.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		st.locks[userID] = l
	}
	return l
}

// GetOrCreate returns the live session for userID, applying lazy expiry
// first. It always succeeds.
func (st *Store) GetOrCreate(userID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	s, ok := st.sessions[userID]
	if ok {
		idle := now.Sub(s.LastSeen)
		switch {
		case idle > st.cfg.SessionTTL:
			logger.DebugCF("session", "Session expired", map[string]interface{}{
				"user_id": userID,
				"idle":    idle.String(),
			})
			ok = false
		case idle > st.cfg.ContextTTL && s.CurrentContext != "":
			// The user went quiet long enough that follow-up context
			// no longer applies, but we still remember them.
			s.CurrentContext = ""
		}
	}
	if !ok {
		s = &Session{UserID: userID, LastSeen: now}
		st.sessions[userID] = s
	}
	return s
}

// Touch refreshes the session's last-seen time.
func (st *Store) Touch(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.LastSeen = st.now()
}

// RecentWindow is the configured size of the non-repetition window.
func (st *Store) RecentWindow() int {
	return st.cfg.MaxRecentAnswers
}

// Sweep removes sessions idle past the session TTL and returns how many
// were dropped.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for userID, s := range st.sessions {
		if now.Sub(s.LastSeen) > st.cfg.SessionTTL {
			delete(st.sessions, userID)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
