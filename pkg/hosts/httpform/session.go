package httpform

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formkit/pkg/form"
)

// session owns one mounted instance. Handlers hold mu for the whole request
// because form instances are not safe for concurrent use.
type session struct {
	mu sync.Mutex

	id         string
	inst       *form.Instance
	submitted  bool
	submitErr  error
	formErrors []string

	// lastSeen is guarded by the store lock.
	lastSeen time.Time
}

// store keeps sessions in memory. Sessions idle for longer than ttl are
// dropped lazily on access, and mounting past max evicts the least recently
// used one.
type store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	max      int
	now      func() time.Time
	onEvict  func(id string)
}

func newStore(ttl time.Duration, max int, onEvict func(id string)) *store {
	return &store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		onEvict:  onEvict,
	}
}

func (s *store) create() *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	for s.max > 0 && len(s.sessions) >= s.max {
		s.evictLocked(s.oldestLocked())
	}
	sess := &session{id: uuid.NewString(), lastSeen: now}
	s.sessions[sess.id] = sess
	return sess
}

// get returns a live session and marks it as used.
func (s *store) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		s.evictLocked(id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

func (s *store) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.sessions)
}

func (s *store) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

func (s *store) sweepLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			s.evictLocked(id)
		}
	}
}

func (s *store) oldestLocked() string {
	var (
		oldest string
		seen   time.Time
	)
	for id, sess := range s.sessions {
		if oldest == "" || sess.lastSeen.Before(seen) {
			oldest, seen = id, sess.lastSeen
		}
	}
	return oldest
}

func (s *store) evictLocked(id string) {
	delete(s.sessions, id)
	if s.onEvict != nil {
		s.onEvict(id)
	}
}

// State is the JSON view of a session.
type State struct {
	Session    string            `json:"session"`
	Model      form.Record       `json:"model"`
	Errors     map[string]string `json:"errors,omitempty"`
	Modified   []string          `json:"modified,omitempty"`
	FormErrors []string          `json:"formErrors,omitempty"`
	Submitted  bool              `json:"submitted"`
}

// state must be called with sess.mu held.
func (sess *session) state() State {
	st := State{
		Session:    sess.id,
		Model:      sess.inst.Model(),
		FormErrors: append([]string(nil), sess.formErrors...),
		Submitted:  sess.submitted,
	}
	if errs := sess.inst.Errors(); len(errs) > 0 {
		st.Errors = make(map[string]string, len(errs))
		for id, message := range errs {
			st.Errors[string(id)] = message
		}
	}
	for _, section := range sess.inst.Form().Sections() {
		for _, field := range section.Fields {
			if sess.inst.IsModified(field.ID) {
				st.Modified = append(st.Modified, string(field.ID))
			}
		}
	}
	sort.Strings(st.Modified)
	return st
}
