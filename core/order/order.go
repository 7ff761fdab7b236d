package order

import (
	"strings"
	"time"

	"github.com/gamevault/topup-store/random"
)

type Status string

const (
	Pending   Status = "pending"
	Success   Status = "success"
	Completed Status = "completed"
	Failed    Status = "failed"
)

// NormalizeStatus lowercases a raw status value. The payment backend is not
// consistent about casing, so every inbound status goes through here.
func NormalizeStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

func (s Status) Terminal() bool {
	return s == Success || s == Completed || s == Failed
}

// Type selects which table an order lives in and where a paid user lands.
type Type string

const (
	TypeGame    Type = "game"
	TypeManual  Type = "manual"
	TypeAccount Type = "account"
	TypeTopup   Type = "topup"
)

// ParseType maps a raw query value to a known variant, defaulting to topup.
func ParseType(s string) Type {
	switch Type(strings.ToLower(s)) {
	case TypeGame:
		return TypeGame
	case TypeManual:
		return TypeManual
	case TypeAccount:
		return TypeAccount
	default:
		return TypeTopup
	}
}

func (t Type) Table() string {
	switch t {
	case TypeGame:
		return "orders"
	case TypeManual:
		return "queues"
	case TypeAccount:
		return "game_accounts"
	default:
		return "topups"
	}
}

// Redirect is the destination a client is sent to once the order is paid.
func (t Type) Redirect() string {
	switch t {
	case TypeGame:
		return "/orders"
	case TypeManual:
		return "/queues"
	case TypeAccount:
		return "/accounts"
	default:
		return "/wallet"
	}
}

type Order struct {
	ID              string    `json:"id" db:"order_id"`
	Status          Status    `json:"status" db:"status"`
	Cost            float64   `json:"cost" db:"cost"`
	PaymentReceived bool      `json:"paymentReceived" db:"payment_received"`
	IntentLink      string    `json:"intentLink,omitempty" db:"intent_link"`
	QRCode          string    `json:"qrCode,omitempty" db:"qr_code"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// Paid reports whether the order reached a successful terminal state.
// The manual queue backend flips payment_received before it touches status,
// so that flag counts as success for the manual variant.
func (o Order) Paid(t Type) bool {
	st := NormalizeStatus(string(o.Status))
	if st == Success || st == Completed {
		return true
	}
	return t == TypeManual && o.PaymentReceived
}

// Declined reports an explicit failure, gateway-reported or self-inflicted.
func (o Order) Declined() bool {
	return NormalizeStatus(string(o.Status)) == Failed
}

type OrderNew struct {
	Type       string  `json:"type" validate:"omitempty,oneof=game manual account topup"`
	Cost       float64 `json:"cost" validate:"required,gt=0"`
	IntentLink string  `json:"intentLink" validate:"omitempty,url"`
	QRCode     string  `json:"qrCode"`
}

// NewID builds an externally visible order reference.
func NewID() string {
	return "ORD-" + random.String(12)
}
