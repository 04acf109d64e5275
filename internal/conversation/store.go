// Package conversation holds the in-memory per-sender transcript store.
package conversation

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wabridge/wabridge/internal/chat"
)

// Store maps sender ids to role-tagged transcripts. All mutations for one
// sender are serialized through Turn; distinct senders proceed
// concurrently. ResetAll is a global barrier that waits for every
// in-flight turn.
type Store struct {
	logger       *slog.Logger
	systemPrompt string
	ttl          time.Duration
	maxSenders   int

	// barrier is read-held for the whole span of a turn and
	// write-held by ResetAll and Sweep.
	barrier sync.RWMutex
	// mu guards the entries map itself.
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	messages []chat.Message
	touched  time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL drops transcripts idle longer than d on the next sweep.
// Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithMaxSenders caps the number of tracked senders, evicting the least
// recently touched transcript when exceeded. Zero disables the cap.
func WithMaxSenders(n int) Option {
	return func(s *Store) { s.maxSenders = n }
}

// NewStore creates a store seeding every new transcript with the given
// system prompt.
func NewStore(log *slog.Logger, systemPrompt string, opts ...Option) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		logger:       log.With(slog.String("service", "conversation")),
		systemPrompt: systemPrompt,
		entries:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcript is the view of one sender's history handed to a Turn
// callback. Appends are visible to the caller for the duration of the
// turn only; no reference may be retained past the callback.
type Transcript struct {
	e *entry
}

// Messages returns the live ordered history, first entry always the
// system utterance.
func (t *Transcript) Messages() []chat.Message {
	return t.e.messages
}

// Append adds one utterance to the end of the history.
func (t *Transcript) Append(role, content string) {
	t.e.messages = append(t.e.messages, chat.Message{Role: role, Content: content})
}

// Len reports the number of utterances, including the system seed.
func (t *Transcript) Len() int {
	return len(t.e.messages)
}

// Turn runs fn with exclusive access to sender's transcript, creating and
// seeding it on first use. Turns for the same sender are strictly
// serialized; turns for distinct senders run concurrently.
func (s *Store) Turn(sender string, fn func(t *Transcript) error) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()

	e := s.entryFor(sender)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = time.Now()
	return fn(&Transcript{e: e})
}

func (s *Store) entryFor(sender string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sender]
	if !ok {
		e = &entry{
			messages: []chat.Message{{Role: chat.RoleSystem, Content: s.systemPrompt}},
			touched:  time.Now(),
		}
		s.entries[sender] = e
		s.enforceCapLocked(sender)
	}
	return e
}

// enforceCapLocked evicts least-recently-touched transcripts until the
// sender cap holds again, never evicting keep. Caller holds s.mu.
func (s *Store) enforceCapLocked(keep string) {
	if s.maxSenders <= 0 {
		return
	}
	for len(s.entries) > s.maxSenders {
		oldest := ""
		var oldestAt time.Time
		for sender, e := range s.entries {
			if sender == keep {
				continue
			}
			if oldest == "" || e.touched.Before(oldestAt) {
				oldest = sender
				oldestAt = e.touched
			}
		}
		if oldest == "" {
			return
		}
		delete(s.entries, oldest)
		s.logger.Info("evicted transcript over sender cap", slog.String("sender", oldest))
	}
}

// ResetAll atomically discards every transcript. It blocks until all
// in-flight turns have finished, so no turn ever observes a half-reset
// store.
func (s *Store) ResetAll() {
	s.barrier.Lock()
	defer s.barrier.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]*entry)
	s.logger.Info("reset all transcripts", slog.Int("dropped", n))
}

// Sweep drops transcripts idle longer than the TTL and re-applies the
// sender cap. It returns the number of evicted transcripts. A zero TTL
// skips expiry.
func (s *Store) Sweep(now time.Time) int {
	s.barrier.Lock()
	defer s.barrier.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	if s.ttl > 0 {
		for sender, e := range s.entries {
			if now.Sub(e.touched) > s.ttl {
				delete(s.entries, sender)
				evicted++
			}
		}
	}
	if s.maxSenders > 0 && len(s.entries) > s.maxSenders {
		type aged struct {
			sender  string
			touched time.Time
		}
		all := make([]aged, 0, len(s.entries))
		for sender, e := range s.entries {
			all = append(all, aged{sender: sender, touched: e.touched})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].touched.Before(all[j].touched) })
		for _, a := range all[:len(s.entries)-s.maxSenders] {
			delete(s.entries, a.sender)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info("swept idle transcripts", slog.Int("evicted", evicted))
	}
	return evicted
}

// Len reports the number of tracked senders.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Peek returns a copy of sender's transcript, or false when none exists.
func (s *Store) Peek(sender string) ([]chat.Message, bool) {
	s.mu.Lock()
	e, ok := s.entries[sender]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]chat.Message, len(e.messages))
	copy(out, e.messages)
	return out, true
}
