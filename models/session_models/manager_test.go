package session_models

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joy095/academy/models/booking_models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	s, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, booking_models.FlowSelecting, s.FlowState)

	loaded, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)

	_, err = m.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Load(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerUpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	s, _ := m.Create(ctx)

	_, err := m.Update(ctx, s.ID, func(s *Session) error {
		s.Role = "admin"
		return errors.New("nope")
	})
	require.Error(t, err)

	loaded, _ := m.Load(ctx, s.ID)
	assert.Empty(t, loaded.Role)
}

func TestManagerClearCredentialsKeepsBooking(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	s, _ := m.Create(ctx)

	_, err := m.Update(ctx, s.ID, func(s *Session) error {
		s.SetCredentials("tok", "admin", time.Time{})
		s.ActiveBookingID = "hold-1"
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.ClearCredentials(ctx, s.ID))

	loaded, _ := m.Load(ctx, s.ID)
	assert.Empty(t, loaded.Token)
	assert.Empty(t, loaded.Role)
	assert.Equal(t, "hold-1", loaded.ActiveBookingID)
}

func TestManagerSubscribe(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	s, _ := m.Create(ctx)
	other, _ := m.Create(ctx)

	var got []EventKind
	unsubscribe := m.Subscribe(s.ID, func(ev Event) {
		got = append(got, ev.Kind)
	})

	_, _ = m.Update(ctx, s.ID, func(s *Session) error { s.ActiveBookingID = "hold-1"; return nil })
	_ = m.ClearBooking(ctx, s.ID)
	_ = m.ClearBooking(ctx, other.ID)

	unsubscribe()
	_ = m.ClearCredentials(ctx, s.ID)

	assert.Equal(t, []EventKind{EventUpdated, EventBookingCleared}, got)
}

func TestSessionHasToken(t *testing.T) {
	now := time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC)

	var nilSession *Session
	assert.False(t, nilSession.HasToken(now))
	assert.False(t, (&Session{}).HasToken(now))
	assert.True(t, (&Session{Token: "t"}).HasToken(now))
	assert.True(t, (&Session{Token: "t", TokenExpiresAt: now.Add(time.Minute)}).HasToken(now))
	assert.False(t, (&Session{Token: "t", TokenExpiresAt: now}).HasToken(now))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Save(ctx, &Session{ID: "a"}, time.Minute))
	_, err := store.Get(ctx, "a")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	draft := &booking_models.BookingDraft{Date: "2026-01-10", ResourceID: "Net 1", SlotLabel: "6:00 AM - 7:00 AM"}
	require.NoError(t, store.Save(ctx, &Session{ID: "a", Draft: draft}, time.Minute))

	s, _ := store.Get(ctx, "a")
	s.Draft.ResourceID = "Net 2"

	again, _ := store.Get(ctx, "a")
	assert.Equal(t, "Net 1", again.Draft.ResourceID)
}

func TestManagerConcurrentUpdatesKeepBothFields(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	for i := 0; i < 200; i++ {
		s, err := m.Create(ctx)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, s.ID, func(s *Session) error {
				s.ActiveBookingID = "hold-1"
				return nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, s.ID, func(s *Session) error {
				s.ReturnTo = "/payment"
				return nil
			})
			assert.NoError(t, err)
		}()
		wg.Wait()

		loaded, err := m.Load(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, "hold-1", loaded.ActiveBookingID, "round %d", i)
		require.Equal(t, "/payment", loaded.ReturnTo, "round %d", i)
	}
	assert.Empty(t, m.locks)
}

func TestMemoryStoreModify(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, &Session{ID: "a", Role: "PLAYER"}, time.Minute))

	_, err := store.Modify(ctx, "a", time.Minute, func(s *Session) error {
		s.Role = "ADMIN"
		return errors.New("rejected")
	})
	require.Error(t, err)
	s, _ := store.Get(ctx, "a")
	assert.Equal(t, "PLAYER", s.Role)

	s, err = store.Modify(ctx, "a", time.Minute, func(s *Session) error {
		s.Role = "ADMIN"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", s.Role)

	_, err = store.Modify(ctx, "missing", time.Minute, func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
