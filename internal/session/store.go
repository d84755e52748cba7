package session

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	mu      sync.Mutex
	session Session
}

// AlertEntry is a point-in-time view of a registered alert.
type AlertEntry struct {
	UserID int64
	Pair   string
	Alert  PriceAlert
}

// Store keeps one Session per user. Mutations of one user are serialized by
// a per-user lock; different users never contend beyond the map lookup.
type Store struct {
	entries map[int64]*entry
	mu      sync.RWMutex
	logger  *zap.Logger
	now     func() time.Time

	alertSeq atomic.Uint64
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries: make(map[int64]*entry),
		logger:  logger.Named("session_store"),
		now:     time.Now,
	}
}

func (s *Store) entry(id int64) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; ok {
		return e
	}
	now := s.now()
	e = &entry{session: Session{UserID: id, CreatedAt: now, UpdatedAt: now}}
	s.entries[id] = e
	s.logger.Debug("Session created", zap.Int64("user_id", id))
	return e
}

// Get returns a copy of the user's session, creating it on first access.
func (s *Store) Get(id int64) Session {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.clone()
}

// Update applies fn to the user's session under the user's lock and returns
// a copy of the result. fn must not block or keep the pointer.
func (s *Store) Update(id int64, fn func(*Session)) Session {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.session)
	e.session.UpdatedAt = s.now()
	return e.session.clone()
}

// SetAwaiting replaces whatever the user was expecting.
func (s *Store) SetAwaiting(id int64, awaiting Awaiting) {
	s.Update(id, func(sess *Session) {
		sess.Awaiting = awaiting
	})
}

// TakeAwaiting returns the pending expectation and clears it.
func (s *Store) TakeAwaiting(id int64) Awaiting {
	var prev Awaiting
	s.Update(id, func(sess *Session) {
		prev = sess.Awaiting
		sess.Awaiting = AwaitingNone
	})
	return prev
}

// RegisterAlert replaces the user's alert with a new registration.
func (s *Store) RegisterAlert(id int64, threshold float64) PriceAlert {
	alert := PriceAlert{
		Threshold: threshold,
		Seq:       s.alertSeq.Add(1),
		CreatedAt: s.now(),
	}
	s.Update(id, func(sess *Session) {
		a := alert
		sess.Alert = &a
	})
	return alert
}

// ConsumeAlert removes the alert only if it is still the registration seq
// and the user still follows pair.
func (s *Store) ConsumeAlert(id int64, seq uint64, pair string) bool {
	consumed := false
	s.Update(id, func(sess *Session) {
		if sess.Alert != nil && sess.Alert.Seq == seq && sess.SelectedPair == pair {
			sess.Alert = nil
			consumed = true
		}
	})
	return consumed
}

// RestoreAlert puts a consumed alert back unless the user registered another meanwhile.
func (s *Store) RestoreAlert(id int64, alert PriceAlert) bool {
	restored := false
	s.Update(id, func(sess *Session) {
		if sess.Alert == nil {
			a := alert
			sess.Alert = &a
			restored = true
		}
	})
	return restored
}

// Alerts returns a snapshot of every registered alert with the owner's pair.
func (s *Store) Alerts() []AlertEntry {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	alerts := make([]AlertEntry, 0)
	for _, e := range entries {
		e.mu.Lock()
		if e.session.Alert != nil {
			alerts = append(alerts, AlertEntry{
				UserID: e.session.UserID,
				Pair:   e.session.SelectedPair,
				Alert:  *e.session.Alert,
			})
		}
		e.mu.Unlock()
	}
	return alerts
}

// AddPosition appends a position to the user's list.
func (s *Store) AddPosition(id int64, pos Position) {
	s.Update(id, func(sess *Session) {
		sess.Positions = append(sess.Positions, pos)
	})
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
