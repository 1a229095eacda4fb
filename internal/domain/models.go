// Package domain contains the core records kept by the collection service.
//
// The service mirrors what it asks the provider to do:
//   - payment requests and the refunds issued against them
//   - persistent payment accounts registered for repeat payers
//   - callbacks the provider posts when money arrives
//   - an audit trail of every provider call
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in major units
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"` // ISO 4217 currency code
}

// NewMoney creates a new Money value from a decimal string
func NewMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: d, Currency: currency}, nil
}

// Add adds two money values
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Sub subtracts money value
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// IsPositive reports whether the amount is above zero
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// String renders the amount followed by the currency
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// PaymentStatus represents the state of a payment request
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusRejected          PaymentStatus = "rejected"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Refundable reports whether refunds may be issued in this state
func (s PaymentStatus) Refundable() bool {
	return s == PaymentStatusPaid || s == PaymentStatusPartiallyRefunded
}

// Final reports whether the status can no longer change through status checks
func (s PaymentStatus) Final() bool {
	switch s {
	case PaymentStatusRejected, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentRequest is a request for money sent to the provider
type PaymentRequest struct {
	ID                 string          `json:"id" db:"id"`
	ReferenceNumber    string          `json:"reference_number" db:"reference_number"`
	Amount             Money           `json:"amount" db:"amount"`
	PayerName          string          `json:"payer_name" db:"payer_name"`
	PayerEmail         string          `json:"payer_email,omitempty" db:"payer_email"`
	PayerPhoneNumber   string          `json:"payer_phone_number,omitempty" db:"payer_phone_number"`
	PayeeName          string          `json:"payee_name" db:"payee_name"`
	PayeeAccountNumber string          `json:"payee_account_number,omitempty" db:"payee_account_number"`
	CallbackURL        string          `json:"callback_url,omitempty" db:"callback_url"`
	PaymentMethods     []string        `json:"payment_methods" db:"payment_methods"`
	Status             PaymentStatus   `json:"status" db:"status"`
	RefundedAmount     decimal.Decimal `json:"refunded_amount" db:"refunded_amount"`
	ProviderStatusCode string          `json:"provider_status_code,omitempty" db:"provider_status_code"`
	ProviderMessage    string          `json:"provider_message,omitempty" db:"provider_message"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Refundable returns the amount that has not been refunded yet
func (p *PaymentRequest) Refundable() decimal.Decimal {
	return p.Amount.Amount.Sub(p.RefundedAmount)
}

// RefundStatus represents the outcome of a refund
type RefundStatus string

const (
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund is a refund issued against a payment request
type Refund struct {
	ID                 string       `json:"id" db:"id"`
	PaymentRequestID   string       `json:"payment_request_id" db:"payment_request_id"`
	ReferenceNumber    string       `json:"reference_number" db:"reference_number"`
	Amount             Money        `json:"amount" db:"amount"`
	Reason             string       `json:"reason,omitempty" db:"reason"`
	Status             RefundStatus `json:"status" db:"status"`
	ProviderStatusCode string       `json:"provider_status_code,omitempty" db:"provider_status_code"`
	ProviderMessage    string       `json:"provider_message,omitempty" db:"provider_message"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
}

// AccountStatus represents the state of a persistent payment account
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusDeleted AccountStatus = "deleted"
)

// PersistentAccount is a reusable account number registered for a payer
type PersistentAccount struct {
	ID                            string        `json:"id" db:"id"`
	ReferenceNumber               string        `json:"reference_number" db:"reference_number"`
	AccountIdentifier             string        `json:"account_identifier" db:"account_identifier"`
	AccountNumber                 string        `json:"account_number,omitempty" db:"account_number"`
	AccountName                   string        `json:"account_name,omitempty" db:"account_name"`
	FirstName                     string        `json:"first_name" db:"first_name"`
	LastName                      string        `json:"last_name" db:"last_name"`
	PhoneNumber                   string        `json:"phone_number" db:"phone_number"`
	Email                         string        `json:"email,omitempty" db:"email"`
	FinancialIdentificationNumber string        `json:"financial_identification_number,omitempty" db:"financial_identification_number"`
	CallbackURL                   string        `json:"callback_url,omitempty" db:"callback_url"`
	Status                        AccountStatus `json:"status" db:"status"`
	CreatedAt                     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt                     time.Time     `json:"updated_at" db:"updated_at"`
	DeletedAt                     *time.Time    `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Callback is a notification posted by the provider
type Callback struct {
	ID              string           `json:"id" db:"id"`
	ReferenceNumber string           `json:"reference_number,omitempty" db:"reference_number"`
	AccountNumber   string           `json:"account_number,omitempty" db:"account_number"`
	StatusCode      string           `json:"status_code,omitempty" db:"status_code"`
	Amount          *decimal.Decimal `json:"amount,omitempty" db:"amount"`
	Payload         json.RawMessage  `json:"payload" db:"payload"`
	ReceivedAt      time.Time        `json:"received_at" db:"received_at"`
}

// EventSeverity represents audit event severity
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityError    EventSeverity = "error"
	SeverityCritical EventSeverity = "critical"
)

// AuditEvent represents a significant event
type AuditEvent struct {
	ID              string          `json:"id" db:"id"`
	Type            string          `json:"type" db:"type"`
	Severity        EventSeverity   `json:"severity" db:"severity"`
	Timestamp       time.Time       `json:"timestamp" db:"timestamp"`
	ReferenceNumber *string         `json:"reference_number,omitempty" db:"reference_number"`
	OperatorID      *string         `json:"operator_id,omitempty" db:"operator_id"`
	Description     string          `json:"description" db:"description"`
	Data            json.RawMessage `json:"data,omitempty" db:"data"`
	IPAddress       string          `json:"ip_address" db:"ip_address"`
	Component       string          `json:"component" db:"component"`
}

// ControlStatus reports whether the service accepts new provider operations
type ControlStatus struct {
	Enabled            bool       `json:"enabled"`
	PausedAt           *time.Time `json:"paused_at,omitempty"`
	PausedBy           string     `json:"paused_by,omitempty"`
	PausedReason       string     `json:"paused_reason,omitempty"`
	DisabledOperations []string   `json:"disabled_operations"`
	PendingRequests    int64      `json:"pending_requests"`
}

// Event is pushed to websocket subscribers when a payment request changes
type Event struct {
	Type            string        `json:"type"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	AccountNumber   string        `json:"account_number,omitempty"`
	Status          PaymentStatus `json:"status,omitempty"`
	Amount          *Money        `json:"amount,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

const (
	EventCallbackReceived = "callback_received"
	EventStatusChanged    = "status_changed"
	EventRefundIssued     = "refund_issued"
)
