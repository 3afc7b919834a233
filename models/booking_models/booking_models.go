package booking_models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HoldStatus is the backend-owned lifecycle status of a booking hold.
type HoldStatus string

const (
	HoldPendingPayment HoldStatus = "PENDING_PAYMENT"
	HoldConfirmed      HoldStatus = "CONFIRMED"
	HoldCancelled      HoldStatus = "CANCELLED"
	HoldExpired        HoldStatus = "EXPIRED"
)

// IsTerminal reports whether no further status change is expected from the backend.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldConfirmed || s == HoldCancelled || s == HoldExpired
}

var (
	ErrInvalidPhone = errors.New("Please enter a valid 10-digit phone number")
	ErrInvalidEmail = errors.New("Please enter a valid email address")
	ErrInvalidDraft = errors.New("Please select a date, resource and slot")
)

var validate = validator.New()

// BookingDraft is a slot selection that has not been sent to the backend yet.
type BookingDraft struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	ResourceID string `json:"resourceId" validate:"required"`
	SlotLabel  string `json:"slotLabel" validate:"required"`
}

// Validate checks the three draft fields are present and the date is YYYY-MM-DD.
func (d BookingDraft) Validate() error {
	d.ResourceID = strings.TrimSpace(d.ResourceID)
	d.SlotLabel = strings.TrimSpace(d.SlotLabel)
	if err := validate.Struct(d); err != nil {
		return ErrInvalidDraft
	}
	return nil
}

// BookingHold is the server-side reservation of a slot pending payment.
type BookingHold struct {
	ID           string     `json:"id"`
	Status       HoldStatus `json:"status"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	Date         string     `json:"date"`
	ResourceID   string     `json:"resourceId"`
	ResourceName string     `json:"resourceName,omitempty"`
	SlotLabel    string     `json:"slotLabel"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency,omitempty"`
}

// EffectiveStatus applies the client-side expiry rule: a pending hold past its expiry is expired.
func (h *BookingHold) EffectiveStatus(now time.Time) HoldStatus {
	if h.Status == HoldPendingPayment && !now.Before(h.ExpiresAt) {
		return HoldExpired
	}
	return h.Status
}

// GuestContact identifies an unauthenticated booker. Never persisted.
type GuestContact struct {
	Phone string `json:"phone" validate:"required,len=10,number"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Normalize trims whitespace from every field.
func (g GuestContact) Normalize() GuestContact {
	return GuestContact{
		Phone: strings.TrimSpace(g.Phone),
		Name:  strings.TrimSpace(g.Name),
		Email: strings.TrimSpace(g.Email),
	}
}

// Validate runs before any network call; the phone must be exactly ten digits.
func (g GuestContact) Validate() error {
	g = g.Normalize()
	err := validate.Struct(g)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Email" {
				return ErrInvalidEmail
			}
		}
	}
	return ErrInvalidPhone
}

// CreateBookingRequest is the payload of the backend's create-booking call.
type CreateBookingRequest struct {
	Date       string        `json:"date"`
	ResourceID string        `json:"resourceId"`
	SlotLabel  string        `json:"slotLabel"`
	Guest      *GuestContact `json:"guest,omitempty"`
}

// NewCreateBookingRequest builds the create-booking payload from a draft.
func NewCreateBookingRequest(d BookingDraft, guest *GuestContact) CreateBookingRequest {
	req := CreateBookingRequest{
		Date:       d.Date,
		ResourceID: d.ResourceID,
		SlotLabel:  d.SlotLabel,
	}
	if guest != nil {
		g := guest.Normalize()
		req.Guest = &g
	}
	return req
}

// BookingStatus is the lightweight response of the booking-status endpoint.
type BookingStatus struct {
	ID     string     `json:"id"`
	Status HoldStatus `json:"status"`
}

// PaymentOrder is the backend-created order the checkout widget pays against.
type PaymentOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId,omitempty"`
}

// PaymentResult is what the checkout widget hands back on success.
type PaymentResult struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// VerifyPaymentRequest is sent to the backend's verify-payment endpoint.
type VerifyPaymentRequest struct {
	BookingID string `json:"bookingId"`
	PaymentResult
}

// VerifyPaymentResponse is the backend's verdict on a payment.
type VerifyPaymentResponse struct {
	Verified  bool   `json:"verified"`
	BookingID string `json:"bookingId"`
	Message   string `json:"message,omitempty"`
}

// BookingSummary is one row of the my-bookings page.
type BookingSummary struct {
	ID           string     `json:"id"`
	Status       HoldStatus `json:"status"`
	Date         string     `json:"date"`
	ResourceName string     `json:"resourceName"`
	SlotLabel    string     `json:"slotLabel"`
	Amount       int64      `json:"amount"`
}
