package session_models

import (
	"errors"
	"time"

	"github.com/joy095/academy/models/booking_models"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// Session is the server-side browser session. The cookie only carries ID.
type Session struct {
	ID             string    `json:"id"`
	Token          string    `json:"token,omitempty"`
	Role           string    `json:"role,omitempty"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitempty"`

	ActiveBookingID string                       `json:"activeBookingId,omitempty"`
	GuestBooking    bool                         `json:"guestBooking,omitempty"`
	Draft           *booking_models.BookingDraft `json:"draft,omitempty"`
	FlowState       booking_models.FlowState     `json:"flowState,omitempty"`
	// PollingBookingID is the paid booking awaiting confirmation.
	PollingBookingID string `json:"pollingBookingId,omitempty"`

	ReturnTo  string    `json:"returnTo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasToken reports whether an upstream token is present and not past its exp claim.
func (s *Session) HasToken(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return s.TokenExpiresAt.IsZero() || now.Before(s.TokenExpiresAt)
}

// SetCredentials stores the token and role returned by login, signup or onboarding.
func (s *Session) SetCredentials(token, role string, expiresAt time.Time) {
	s.Token = token
	s.Role = role
	s.TokenExpiresAt = expiresAt
}

// ClearCredentials drops token and role. Booking keys are kept.
func (s *Session) ClearCredentials() {
	s.Token = ""
	s.Role = ""
	s.TokenExpiresAt = time.Time{}
}

// ClearBooking drops the draft, active hold and guest flag and resets the flow.
func (s *Session) ClearBooking() {
	s.Draft = nil
	s.ActiveBookingID = ""
	s.GuestBooking = false
	s.PollingBookingID = ""
	s.FlowState = booking_models.FlowSelecting
}

// HasActiveBooking reports whether the session holds a draft or a server hold.
func (s *Session) HasActiveBooking() bool {
	return s != nil && (s.ActiveBookingID != "" || s.Draft != nil)
}

// Clone returns a copy that subscribers may keep without racing the owner.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Draft != nil {
		d := *s.Draft
		c.Draft = &d
	}
	return &c
}
