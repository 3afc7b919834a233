package session_models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/booking_models"
)

// EventKind says what changed in a session.
type EventKind string

const (
	EventUpdated            EventKind = "updated"
	EventCredentialsCleared EventKind = "credentials_cleared"
	EventBookingCleared     EventKind = "booking_cleared"
	EventDestroyed          EventKind = "destroyed"
)

// Event is delivered to subscribers after a session write succeeds.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Manager is the explicit session context: read, write, clear and subscribe.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu     sync.RWMutex
	subs   map[string]map[int]func(Event)
	nextID int

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock serializes writes to one session within this process.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		subs:  make(map[string]map[int]func(Event)),
		locks: make(map[string]*sessionLock),
	}
}

// Create starts a new anonymous session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		FlowState: booking_models.FlowSelecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(ctx, id)
}

// Update loads the session, applies fn and saves it. fn errors abort without saving.
// Updates to the same session never interleave, so concurrent writers each see
// the other's changes.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return m.update(ctx, id, EventUpdated, fn)
}

// ClearCredentials wipes token and role, as after logout or an upstream 401.
func (m *Manager) ClearCredentials(ctx context.Context, id string) error {
	_, err := m.update(ctx, id, EventCredentialsCleared, func(s *Session) error {
		s.ClearCredentials()
		return nil
	})
	return err
}

// ClearBooking wipes the draft, the active hold id and the guest flag.
func (m *Manager) ClearBooking(ctx context.Context, id string) error {
	_, err := m.update(ctx, id, EventBookingCleared, func(s *Session) error {
		s.ClearBooking()
		return nil
	})
	return err
}

// Destroy removes the session entirely.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.publish(id, Event{Kind: EventDestroyed, Session: &Session{ID: id}})
	return nil
}

// Subscribe registers fn for changes to one session. Call the returned func to stop.
func (m *Manager) Subscribe(sessionID string, fn func(Event)) func() {
	m.mu.Lock()
	m.nextID++
	subID := m.nextID
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = make(map[int]func(Event))
	}
	m.subs[sessionID][subID] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[sessionID], subID)
		if len(m.subs[sessionID]) == 0 {
			delete(m.subs, sessionID)
		}
	}
}

func (m *Manager) update(ctx context.Context, id string, kind EventKind, fn func(*Session) error) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	var fnErr error
	s, err := func() (*Session, error) {
		unlock := m.lock(id)
		defer unlock()
		return m.store.Modify(ctx, id, m.ttl, func(s *Session) error {
			if fnErr = fn(s); fnErr != nil {
				return fnErr
			}
			s.UpdatedAt = m.now()
			return nil
		})
	}()
	if err != nil {
		if fnErr != nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionContended) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save session %s: %w", id, err)
	}

	m.publish(id, Event{Kind: kind, Session: s.Clone()})
	return s, nil
}

func (m *Manager) lock(id string) func() {
	m.locksMu.Lock()
	l := m.locks[id]
	if l == nil {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

func (m *Manager) publish(id string, ev Event) {
	m.mu.RLock()
	handlers := make([]func(Event), 0, len(m.subs[id]))
	for _, fn := range m.subs[id] {
		handlers = append(handlers, fn)
	}
	m.mu.RUnlock()

	if len(handlers) > 0 {
		logger.InfoLogger.Debugf("Session %s: delivering %s to %d subscriber(s)", id, ev.Kind, len(handlers))
	}
	for _, fn := range handlers {
		fn(ev)
	}
}
