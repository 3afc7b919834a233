package clients

import (
	"github.com/joy095/academy/models/booking_models"
	"github.com/razorpay/razorpay-go/utils"
)

// CheckoutClientWrapper builds the checkout widget descriptor and checks what it returns.
// This interface allows for easier testing by mocking the payment provider.
type CheckoutClientWrapper interface {
	CheckoutOptions(order *booking_models.PaymentOrder, hold *booking_models.BookingHold, prefill Prefill) CheckoutOptions
	CanVerify() bool
	VerifyPaymentSignature(result booking_models.PaymentResult) bool
}

// Prefill is the contact data shown pre-filled in the checkout widget.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// CheckoutOptions is handed verbatim to the browser's checkout script.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	OrderID     string            `json:"order_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// RazorpayClient implements CheckoutClientWrapper for Razorpay Checkout.
type RazorpayClient struct {
	KeyID           string
	KeySecret       string
	MerchantName    string
	DefaultCurrency string
}

// NewRazorpayClient creates a checkout helper. keySecret may be empty, in which case
// signatures are left to the backend's verify endpoint.
func NewRazorpayClient(keyID, keySecret, merchantName, currency string) *RazorpayClient {
	if currency == "" {
		currency = "INR"
	}
	return &RazorpayClient{
		KeyID:           keyID,
		KeySecret:       keySecret,
		MerchantName:    merchantName,
		DefaultCurrency: currency,
	}
}

func (r *RazorpayClient) CheckoutOptions(order *booking_models.PaymentOrder, hold *booking_models.BookingHold, prefill Prefill) CheckoutOptions {
	key := order.KeyID
	if key == "" {
		key = r.KeyID
	}
	currency := order.Currency
	if currency == "" {
		currency = r.DefaultCurrency
	}

	opts := CheckoutOptions{
		Key:      key,
		Amount:   order.Amount,
		Currency: currency,
		OrderID:  order.OrderID,
		Name:     r.MerchantName,
		Prefill:  prefill,
	}
	if hold != nil {
		resource := hold.ResourceName
		if resource == "" {
			resource = hold.ResourceID
		}
		opts.Description = resource + " · " + hold.Date + " · " + hold.SlotLabel
		opts.Notes = map[string]string{"booking_id": hold.ID}
	}
	return opts
}

func (r *RazorpayClient) CanVerify() bool {
	return r.KeySecret != ""
}

// VerifyPaymentSignature checks HMAC-SHA256(order_id|payment_id) against the widget's signature.
func (r *RazorpayClient) VerifyPaymentSignature(result booking_models.PaymentResult) bool {
	if !r.CanVerify() || result.Signature == "" {
		return false
	}
	// The arguments for utils.VerifyWebhookSignature are (payload, signature, secret)
	return utils.VerifyWebhookSignature(result.OrderID+"|"+result.PaymentID, result.Signature, r.KeySecret)
}
