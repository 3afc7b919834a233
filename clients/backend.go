package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/joy095/academy/models/booking_models"
	"github.com/joy095/academy/models/session_models"
)

// Backend is the typed REST surface of the academy backend. Calls made on behalf of
// a session with a token go through the authenticated client; anonymous and guest
// calls go through the public client.
type Backend struct {
	API    *APIClient
	Public *PublicClient
}

func NewBackend(api *APIClient, public *PublicClient) *Backend {
	return &Backend{API: api, Public: public}
}

// AuthResponse is returned by login, signup and onboarding completion.
type AuthResponse struct {
	Token              string          `json:"token"`
	Role               string          `json:"role"`
	OnboardingRequired bool            `json:"onboardingRequired,omitempty"`
	User               json.RawMessage `json:"user,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,len=10,number"`
	Password string `json:"password" binding:"required,min=8"`
}

// OnboardingRequest is the player profile completed after signup.
type OnboardingRequest struct {
	DateOfBirth string `json:"dateOfBirth" binding:"required,datetime=2006-01-02"`
	Gender      string `json:"gender,omitempty"`
	PlayingRole string `json:"playingRole,omitempty"`
	BattingHand string `json:"battingHand,omitempty"`
	ParentName  string `json:"parentName,omitempty"`
	ParentPhone string `json:"parentPhone,omitempty" binding:"omitempty,len=10,number"`
}

// EnquiryRequest is a public summer-camp / contact enquiry.
type EnquiryRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required,len=10,number"`
	Email   string `json:"email,omitempty" binding:"omitempty,email"`
	Program string `json:"program,omitempty"`
	Message string `json:"message,omitempty" binding:"max=2000"`
}

func sessionHeader(sess *session_models.Session) RequestOption {
	if sess == nil {
		return func(*http.Request) {}
	}
	return WithHeader("X-Session-ID", sess.ID)
}

func hasToken(sess *session_models.Session) bool {
	return sess != nil && sess.Token != ""
}

// ---- auth ----

func (b *Backend) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := b.Public.Do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := b.Public.Do(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) CompleteOnboarding(ctx context.Context, sess *session_models.Session, req OnboardingRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := b.API.Do(ctx, sess, http.MethodPost, "/auth/onboarding", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- booking ----

// CreateBooking creates a hold for an authenticated session.
func (b *Backend) CreateBooking(ctx context.Context, sess *session_models.Session, req booking_models.CreateBookingRequest) (*booking_models.BookingHold, error) {
	var out booking_models.BookingHold
	if err := b.API.Do(ctx, sess, http.MethodPost, "/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGuestBooking creates a hold identified by the guest's phone number.
func (b *Backend) CreateGuestBooking(ctx context.Context, sess *session_models.Session, req booking_models.CreateBookingRequest) (*booking_models.BookingHold, error) {
	var out booking_models.BookingHold
	if err := b.Public.Do(ctx, http.MethodPost, "/bookings/guest", req, &out, sessionHeader(sess)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) GetBooking(ctx context.Context, sess *session_models.Session, id string) (*booking_models.BookingHold, error) {
	var out booking_models.BookingHold
	path := "/bookings/" + url.PathEscape(id)
	var err error
	if hasToken(sess) {
		err = b.API.Do(ctx, sess, http.MethodGet, path, nil, &out)
	} else {
		err = b.Public.Do(ctx, http.MethodGet, path, nil, &out, sessionHeader(sess))
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBookingStatus is the lightweight endpoint polled by the confirmation page.
func (b *Backend) GetBookingStatus(ctx context.Context, sess *session_models.Session, id string) (*booking_models.BookingStatus, error) {
	var out booking_models.BookingStatus
	path := "/bookings/" + url.PathEscape(id) + "/status"
	var err error
	if hasToken(sess) {
		err = b.API.Do(ctx, sess, http.MethodGet, path, nil, &out)
	} else {
		err = b.Public.Do(ctx, http.MethodGet, path, nil, &out, sessionHeader(sess))
	}
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

func (b *Backend) MyBookings(ctx context.Context, sess *session_models.Session) ([]booking_models.BookingSummary, error) {
	out := []booking_models.BookingSummary{}
	if err := b.API.Do(ctx, sess, http.MethodGet, "/bookings/mine", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- payment ----

func (b *Backend) CreatePaymentOrder(ctx context.Context, sess *session_models.Session, bookingID string) (*booking_models.PaymentOrder, error) {
	var out booking_models.PaymentOrder
	body := map[string]string{"bookingId": bookingID}
	var err error
	if hasToken(sess) {
		err = b.API.Do(ctx, sess, http.MethodPost, "/payments/order", body, &out)
	} else {
		err = b.Public.Do(ctx, http.MethodPost, "/payments/order", body, &out, sessionHeader(sess))
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) VerifyPayment(ctx context.Context, sess *session_models.Session, req booking_models.VerifyPaymentRequest) (*booking_models.VerifyPaymentResponse, error) {
	var out booking_models.VerifyPaymentResponse
	var err error
	if hasToken(sess) {
		err = b.API.Do(ctx, sess, http.MethodPost, "/payments/verify", req, &out)
	} else {
		err = b.Public.Do(ctx, http.MethodPost, "/payments/verify", req, &out, sessionHeader(sess))
	}
	if err != nil {
		return nil, err
	}
	if out.BookingID == "" {
		out.BookingID = req.BookingID
	}
	return &out, nil
}

// ---- public content ----

// PublicGet fetches an anonymous read endpoint (settings, gallery, news, ...) as raw JSON.
func (b *Backend) PublicGet(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if err := b.Public.Do(ctx, http.MethodGet, path, nil, &out, WithQuery(query)); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) SubmitEnquiry(ctx context.Context, req EnquiryRequest) error {
	return b.Public.Do(ctx, http.MethodPost, "/enquiries", req, nil)
}

// ---- admin ----

// AdminDo proxies one admin CRUD call for resource (players, fee-plans, news, ...).
func (b *Backend) AdminDo(ctx context.Context, sess *session_models.Session, method, resource, id string, query url.Values, body any) (json.RawMessage, error) {
	path := "/admin/" + url.PathEscape(resource)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	var out json.RawMessage
	if err := b.API.Do(ctx, sess, method, path, body, &out, WithQuery(query)); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadMedia forwards a multipart upload; the multipart writer's boundary is preserved.
func (b *Backend) UploadMedia(ctx context.Context, sess *session_models.Session, body *Multipart) (json.RawMessage, error) {
	var out json.RawMessage
	if err := b.API.Do(ctx, sess, http.MethodPost, "/admin/media", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
