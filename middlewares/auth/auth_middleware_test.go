package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/guard"
	"github.com/joy095/academy/models/booking_models"
	"github.com/joy095/academy/models/session_models"
	"github.com/joy095/academy/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "academy_sid"

func setupRouter(sessions *session_models.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddleware(sessions, CookieOptions{Name: cookieName, MaxAge: time.Hour}))

	ok := func(c *gin.Context) {
		sess, _ := utils.GetSessionFromContext(c)
		c.JSON(http.StatusOK, gin.H{"session": sess.ID})
	}
	r.GET("/", RequireSession(sessions, guard.PublicPage), ok)
	r.GET("/my-bookings", RequireSession(sessions, guard.AuthenticatedPage), ok)
	r.GET("/admin/players", RequireSession(sessions, guard.RolesPage("ADMIN")), ok)
	r.GET("/payment", RequirePaymentAccess(sessions), ok)
	return r
}

func newSession(t *testing.T, sessions *session_models.Manager, fn func(*session_models.Session)) string {
	t.Helper()
	s, err := sessions.Create(context.Background())
	require.NoError(t, err)
	if fn != nil {
		_, err = sessions.Update(context.Background(), s.ID, func(s *session_models.Session) error {
			fn(s)
			return nil
		})
		require.NoError(t, err)
	}
	return s.ID
}

func get(r *gin.Engine, path, sessionID string, jsonAccept bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: sessionID})
	}
	if jsonAccept {
		req.Header.Set("Accept", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware_CreatesSessionOnFirstVisit(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)

	w := get(r, "/", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	sess, err := sessions.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowSelecting, sess.FlowState)
}

func TestSessionMiddleware_ReusesExistingSession(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)
	id := newSession(t, sessions, nil)

	w := get(r, "/", id, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session":"`+id+`"}`, w.Body.String())
}

func TestSessionMiddleware_DropsExpiredToken(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)
	id := newSession(t, sessions, func(s *session_models.Session) {
		s.SetCredentials("old", "PLAYER", time.Now().Add(-time.Minute))
	})

	w := get(r, "/my-bookings", id, false)
	assert.Equal(t, http.StatusFound, w.Code)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
}

func TestRequireSession_RedirectsToLoginAndRemembersPath(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)
	id := newSession(t, sessions, nil)

	w := get(r, "/my-bookings", id, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fmy-bookings", w.Header().Get("Location"))

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "/my-bookings", sess.ReturnTo)

	w = get(r, "/my-bookings", id, true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "/login?next=%2Fmy-bookings", body["redirect"])
}

func TestRequireSession_WrongRoleGoesHome(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)
	id := newSession(t, sessions, func(s *session_models.Session) {
		s.SetCredentials("tok", "PLAYER", time.Time{})
	})

	w := get(r, "/admin/players", id, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = get(r, "/my-bookings", id, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSession_AdminRenders(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)
	id := newSession(t, sessions, func(s *session_models.Session) {
		s.SetCredentials("tok", "ADMIN", time.Time{})
	})

	w := get(r, "/admin/players", id, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePaymentAccess(t *testing.T) {
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	r := setupRouter(sessions)

	member := newSession(t, sessions, func(s *session_models.Session) {
		s.SetCredentials("tok", "PLAYER", time.Time{})
	})
	w := get(r, "/payment", member, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/booking", w.Header().Get("Location"))

	_, err := sessions.Update(context.Background(), member, func(s *session_models.Session) error {
		s.ActiveBookingID = "hold-1"
		return nil
	})
	require.NoError(t, err)
	w = get(r, "/payment", member, false)
	assert.Equal(t, http.StatusOK, w.Code)

	guest := newSession(t, sessions, func(s *session_models.Session) {
		s.ActiveBookingID = "hold-2"
		s.GuestBooking = true
	})
	w = get(r, "/payment", guest, false)
	assert.Equal(t, http.StatusOK, w.Code)

	anonymous := newSession(t, sessions, nil)
	w = get(r, "/payment", anonymous, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/booking", w.Header().Get("Location"))

	// A draft that was never confirmed as a guest still needs a sign-in.
	drafted := newSession(t, sessions, func(s *session_models.Session) {
		s.Draft = &booking_models.BookingDraft{Date: "2026-10-20", ResourceID: "net-1", SlotLabel: "07:00-08:00"}
	})
	w = get(r, "/payment", drafted, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fpayment", w.Header().Get("Location"))
}
