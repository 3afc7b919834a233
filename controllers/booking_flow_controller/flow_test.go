package booking_flow_controller

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/models/booking_models"
	"github.com/joy095/academy/models/session_models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateBooking(ctx context.Context, sess *session_models.Session, req booking_models.CreateBookingRequest) (*booking_models.BookingHold, error) {
	args := m.Called(ctx, sess, req)
	hold, _ := args.Get(0).(*booking_models.BookingHold)
	return hold, args.Error(1)
}

func (m *mockBackend) CreateGuestBooking(ctx context.Context, sess *session_models.Session, req booking_models.CreateBookingRequest) (*booking_models.BookingHold, error) {
	args := m.Called(ctx, sess, req)
	hold, _ := args.Get(0).(*booking_models.BookingHold)
	return hold, args.Error(1)
}

func (m *mockBackend) GetBooking(ctx context.Context, sess *session_models.Session, id string) (*booking_models.BookingHold, error) {
	args := m.Called(ctx, sess, id)
	hold, _ := args.Get(0).(*booking_models.BookingHold)
	return hold, args.Error(1)
}

func (m *mockBackend) GetBookingStatus(ctx context.Context, sess *session_models.Session, id string) (*booking_models.BookingStatus, error) {
	args := m.Called(ctx, sess, id)
	st, _ := args.Get(0).(*booking_models.BookingStatus)
	return st, args.Error(1)
}

func (m *mockBackend) CreatePaymentOrder(ctx context.Context, sess *session_models.Session, bookingID string) (*booking_models.PaymentOrder, error) {
	args := m.Called(ctx, sess, bookingID)
	order, _ := args.Get(0).(*booking_models.PaymentOrder)
	return order, args.Error(1)
}

func (m *mockBackend) VerifyPayment(ctx context.Context, sess *session_models.Session, req booking_models.VerifyPaymentRequest) (*booking_models.VerifyPaymentResponse, error) {
	args := m.Called(ctx, sess, req)
	resp, _ := args.Get(0).(*booking_models.VerifyPaymentResponse)
	return resp, args.Error(1)
}

var testNow = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

var testDraft = booking_models.BookingDraft{Date: "2026-01-10", ResourceID: "Net 1", SlotLabel: "6:00 AM - 7:00 AM"}

func newService(t *testing.T, secret string) (*BookingFlowService, *mockBackend, *session_models.Manager) {
	t.Helper()
	backend := &mockBackend{}
	sessions := session_models.NewManager(session_models.NewMemoryStore(), time.Hour)
	svc := NewBookingFlowService(backend, sessions, clients.NewRazorpayClient("rzp_test", secret, "Academy", "INR"))
	svc.Now = func() time.Time { return testNow }
	return svc, backend, sessions
}

func newGuestSession(t *testing.T, sessions *session_models.Manager) string {
	t.Helper()
	sess, err := sessions.Create(context.Background())
	require.NoError(t, err)
	return sess.ID
}

func newMemberSession(t *testing.T, sessions *session_models.Manager) string {
	t.Helper()
	id := newGuestSession(t, sessions)
	_, err := sessions.Update(context.Background(), id, func(s *session_models.Session) error {
		s.SetCredentials("tok", "PLAYER", time.Time{})
		return nil
	})
	require.NoError(t, err)
	return id
}

func pendingHold(id string, expiresIn time.Duration) *booking_models.BookingHold {
	return &booking_models.BookingHold{
		ID:           id,
		Status:       booking_models.HoldPendingPayment,
		ExpiresAt:    testNow.Add(expiresIn),
		Date:         testDraft.Date,
		ResourceID:   "net-1",
		ResourceName: testDraft.ResourceID,
		SlotLabel:    testDraft.SlotLabel,
		Amount:       50000,
		Currency:     "INR",
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(booking_models.FlowSelecting, booking_models.FlowDraftHeld))
	assert.True(t, CanTransition("", booking_models.FlowDraftHeld))
	assert.True(t, CanTransition(booking_models.FlowDraftHeld, booking_models.FlowAwaitingConfirmation))
	assert.True(t, CanTransition(booking_models.FlowPaying, booking_models.FlowPolling))
	assert.True(t, CanTransition(booking_models.FlowPolling, booking_models.FlowConfirmed))

	assert.False(t, CanTransition(booking_models.FlowSelecting, booking_models.FlowAwaitingConfirmation))
	assert.False(t, CanTransition(booking_models.FlowSelecting, booking_models.FlowPaying))
	assert.False(t, CanTransition(booking_models.FlowAwaitingConfirmation, booking_models.FlowPolling))
	assert.False(t, CanTransition(booking_models.FlowAwaitingConfirmation, booking_models.FlowSelecting))
	assert.False(t, CanTransition(booking_models.FlowConfirmed, booking_models.FlowPolling))
}

func TestSelectSlot_StoresDraftWithoutNetwork(t *testing.T) {
	svc, backend, _ := newService(t, "")
	id := newGuestSession(t, svc.Sessions)

	sess, err := svc.SelectSlot(context.Background(), id, testDraft)
	require.NoError(t, err)

	require.NotNil(t, sess.Draft)
	assert.Equal(t, testDraft, *sess.Draft)
	assert.Equal(t, booking_models.FlowDraftHeld, sess.FlowState)
	backend.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "CreateGuestBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestSelectSlot_InvalidDraft(t *testing.T) {
	svc, _, _ := newService(t, "")
	id := newGuestSession(t, svc.Sessions)

	_, err := svc.SelectSlot(context.Background(), id, booking_models.BookingDraft{Date: "10/01/2026", ResourceID: "Net 1", SlotLabel: "x"})
	assert.ErrorIs(t, err, booking_models.ErrInvalidDraft)
}

func TestConfirmDraft_GuestRejectsShortPhone(t *testing.T) {
	svc, backend, _ := newService(t, "")
	id := newGuestSession(t, svc.Sessions)
	_, err := svc.SelectSlot(context.Background(), id, testDraft)
	require.NoError(t, err)

	_, err = svc.ConfirmDraft(context.Background(), id, &booking_models.GuestContact{Phone: "987654321"})
	require.ErrorIs(t, err, booking_models.ErrInvalidPhone)
	assert.Contains(t, err.Error(), "valid 10-digit phone number")
	backend.AssertNotCalled(t, "CreateGuestBooking", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.ConfirmDraft(context.Background(), id, nil)
	assert.ErrorIs(t, err, booking_models.ErrInvalidPhone)
}

func TestConfirmDraft_GuestCreatesHold(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := newGuestSession(t, sessions)
	_, err := svc.SelectSlot(context.Background(), id, testDraft)
	require.NoError(t, err)

	backend.On("CreateGuestBooking", mock.Anything, mock.Anything, mock.MatchedBy(func(req booking_models.CreateBookingRequest) bool {
		return req.Guest != nil && req.Guest.Phone == "9876543210" && req.SlotLabel == testDraft.SlotLabel
	})).Return(pendingHold("hold-1", 5*time.Minute), nil).Once()

	hold, err := svc.ConfirmDraft(context.Background(), id, &booking_models.GuestContact{Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "hold-1", hold.ID)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "hold-1", sess.ActiveBookingID)
	assert.True(t, sess.GuestBooking)
	assert.Equal(t, booking_models.FlowAwaitingConfirmation, sess.FlowState)
	backend.AssertExpectations(t)
}

func TestConfirmDraft_BusinessRejectionKeepsDraft(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := newMemberSession(t, sessions)
	_, err := svc.SelectSlot(context.Background(), id, testDraft)
	require.NoError(t, err)

	taken := &clients.APIError{Status: http.StatusConflict, Message: "Slot already booked"}
	backend.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil, taken).Once()

	_, err = svc.ConfirmDraft(context.Background(), id, nil)
	require.Error(t, err)
	assert.Equal(t, "Slot already booked", err.Error())
	assert.True(t, clients.IsBusinessRejection(err))

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowDraftHeld, sess.FlowState)
	assert.NotNil(t, sess.Draft)
	assert.Empty(t, sess.ActiveBookingID)
}

func TestConfirmDraft_RequiresDraft(t *testing.T) {
	svc, _, sessions := newService(t, "")
	id := newMemberSession(t, sessions)

	_, err := svc.ConfirmDraft(context.Background(), id, nil)
	assert.ErrorIs(t, err, ErrNoActiveBooking)
}

func holdSession(t *testing.T, svc *BookingFlowService, backend *mockBackend, hold *booking_models.BookingHold) string {
	t.Helper()
	id := newMemberSession(t, svc.Sessions)
	_, err := svc.SelectSlot(context.Background(), id, testDraft)
	require.NoError(t, err)
	backend.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(hold, nil).Once()
	_, err = svc.ConfirmDraft(context.Background(), id, nil)
	require.NoError(t, err)
	return id
}

func TestOpenPayment_StartsCountdown(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	hold := pendingHold("hold-2", 5*time.Second)
	id := holdSession(t, svc, backend, hold)

	backend.On("GetBooking", mock.Anything, mock.Anything, "hold-2").Return(hold, nil).Once()
	backend.On("CreatePaymentOrder", mock.Anything, mock.Anything, "hold-2").
		Return(&booking_models.PaymentOrder{OrderID: "order_1", Amount: 50000, Currency: "INR"}, nil).Once()

	page, err := svc.OpenPayment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, page.RemainingSeconds)
	assert.Equal(t, "0:05", page.Countdown)
	assert.Equal(t, "order_1", page.Checkout.OrderID)
	assert.Equal(t, "rzp_test", page.Checkout.Key)
	assert.Equal(t, "hold-2", page.Checkout.Notes["booking_id"])

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowPaying, sess.FlowState)
}

func TestOpenPayment_ExpiredHoldClearsBooking(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	hold := pendingHold("hold-3", 0)
	id := holdSession(t, svc, backend, hold)

	backend.On("GetBooking", mock.Anything, mock.Anything, "hold-3").Return(hold, nil).Once()

	_, err := svc.OpenPayment(context.Background(), id)
	assert.ErrorIs(t, err, ErrHoldExpired)
	backend.AssertNotCalled(t, "CreatePaymentOrder", mock.Anything, mock.Anything, mock.Anything)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowExpired, sess.FlowState)
	assert.Nil(t, sess.Draft)
	assert.Empty(t, sess.ActiveBookingID)
}

func TestOpenPayment_WithoutHold(t *testing.T) {
	svc, _, sessions := newService(t, "")
	id := newMemberSession(t, sessions)

	_, err := svc.OpenPayment(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoActiveBooking)
}

func payingSession(t *testing.T, svc *BookingFlowService, backend *mockBackend) string {
	t.Helper()
	hold := pendingHold("hold-4", 10*time.Minute)
	id := holdSession(t, svc, backend, hold)
	backend.On("GetBooking", mock.Anything, mock.Anything, "hold-4").Return(hold, nil).Once()
	backend.On("CreatePaymentOrder", mock.Anything, mock.Anything, "hold-4").
		Return(&booking_models.PaymentOrder{OrderID: "order_4", Amount: 50000}, nil).Once()
	_, err := svc.OpenPayment(context.Background(), id)
	require.NoError(t, err)
	return id
}

func signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPayment_SuccessClearsBooking(t *testing.T) {
	svc, backend, sessions := newService(t, "secret")
	id := payingSession(t, svc, backend)

	result := booking_models.PaymentResult{OrderID: "order_4", PaymentID: "pay_4", Signature: signature("secret", "order_4", "pay_4")}
	backend.On("VerifyPayment", mock.Anything, mock.Anything, booking_models.VerifyPaymentRequest{BookingID: "hold-4", PaymentResult: result}).
		Return(&booking_models.VerifyPaymentResponse{Verified: true, BookingID: "hold-4"}, nil).Once()

	bookingID, err := svc.VerifyPayment(context.Background(), id, result)
	require.NoError(t, err)
	assert.Equal(t, "hold-4", bookingID)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowPolling, sess.FlowState)
	assert.Empty(t, sess.ActiveBookingID)
	assert.Nil(t, sess.Draft)
	backend.AssertExpectations(t)
}

func TestVerifyPayment_BadSignatureFails(t *testing.T) {
	svc, backend, sessions := newService(t, "secret")
	id := payingSession(t, svc, backend)

	result := booking_models.PaymentResult{OrderID: "order_4", PaymentID: "pay_4", Signature: signature("wrong", "order_4", "pay_4")}
	bookingID, err := svc.VerifyPayment(context.Background(), id, result)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, "hold-4", bookingID)
	backend.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything, mock.Anything)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowFailed, sess.FlowState)
}

func TestVerifyPayment_BackendRejects(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := payingSession(t, svc, backend)

	backend.On("VerifyPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &clients.APIError{Status: http.StatusBadRequest, Message: "signature mismatch"}).Once()

	_, err := svc.VerifyPayment(context.Background(), id, booking_models.PaymentResult{OrderID: "o", PaymentID: "p", Signature: "s"})
	assert.ErrorIs(t, err, ErrVerificationFailed)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowFailed, sess.FlowState)
}

func TestVerifyPayment_NetworkErrorKeepsPaying(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := payingSession(t, svc, backend)

	backend.On("VerifyPayment", mock.Anything, mock.Anything, mock.Anything).Return(nil, clients.ErrNetwork).Once()

	_, err := svc.VerifyPayment(context.Background(), id, booking_models.PaymentResult{OrderID: "o", PaymentID: "p", Signature: "s"})
	assert.ErrorIs(t, err, clients.ErrNetwork)

	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowPaying, sess.FlowState)
	assert.Equal(t, "hold-4", sess.ActiveBookingID)
}

func TestCancelDraft(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := newGuestSession(t, sessions)
	_, err := svc.SelectSlot(context.Background(), id, testDraft)
	require.NoError(t, err)

	require.NoError(t, svc.CancelDraft(context.Background(), id))
	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, sess.Draft)
	assert.Equal(t, booking_models.FlowSelecting, sess.FlowState)

	held := holdSession(t, svc, backend, pendingHold("hold-5", time.Minute))
	assert.ErrorIs(t, svc.CancelDraft(context.Background(), held), ErrInvalidTransition)
}

func TestExpireHold_IgnoresStaleBooking(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := holdSession(t, svc, backend, pendingHold("hold-6", time.Minute))

	require.NoError(t, svc.ExpireHold(context.Background(), id, "some-other-hold"))
	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "hold-6", sess.ActiveBookingID)

	require.NoError(t, svc.ExpireHold(context.Background(), id, "hold-6"))
	sess, err = sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, sess.ActiveBookingID)
	assert.Equal(t, booking_models.FlowExpired, sess.FlowState)
}

func TestExpireHold_AfterVerifiedPaymentIsIgnored(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := payingSession(t, svc, backend)
	backend.On("VerifyPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(&booking_models.VerifyPaymentResponse{Verified: true}, nil).Once()
	_, err := svc.VerifyPayment(context.Background(), id, booking_models.PaymentResult{OrderID: "o", PaymentID: "p", Signature: "s"})
	require.NoError(t, err)

	require.NoError(t, svc.ExpireHold(context.Background(), id, "hold-4"))
	sess, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking_models.FlowPolling, sess.FlowState)
	assert.Equal(t, "hold-4", sess.PollingBookingID)
}

func TestRecordPollResult(t *testing.T) {
	svc, backend, sessions := newService(t, "")
	id := payingSession(t, svc, backend)
	backend.On("VerifyPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(&booking_models.VerifyPaymentResponse{Verified: true}, nil).Once()
	_, err := svc.VerifyPayment(context.Background(), id, booking_models.PaymentResult{OrderID: "o", PaymentID: "p", Signature: "s"})
	require.NoError(t, err)

	sess, _ := sessions.Load(context.Background(), id)
	assert.Equal(t, "hold-4", sess.PollingBookingID)

	require.NoError(t, svc.RecordPollResult(context.Background(), id, "hold-4", PollResult{Outcome: PollTimedOut, Done: true}))
	sess, _ = sessions.Load(context.Background(), id)
	assert.Equal(t, booking_models.FlowPolling, sess.FlowState)

	// Another booking's outcome is not this session's.
	require.NoError(t, svc.RecordPollResult(context.Background(), id, "someone-else", PollResult{Outcome: PollCancelled, Done: true}))
	sess, _ = sessions.Load(context.Background(), id)
	assert.Equal(t, booking_models.FlowPolling, sess.FlowState)

	require.NoError(t, svc.RecordPollResult(context.Background(), id, "hold-4", PollResult{Outcome: PollConfirmed, Done: true}))
	sess, _ = sessions.Load(context.Background(), id)
	assert.Equal(t, booking_models.FlowConfirmed, sess.FlowState)

	// A second terminal result does not overwrite the first.
	require.NoError(t, svc.RecordPollResult(context.Background(), id, "hold-4", PollResult{Outcome: PollCancelled, Done: true}))
	sess, _ = sessions.Load(context.Background(), id)
	assert.Equal(t, booking_models.FlowConfirmed, sess.FlowState)
}
