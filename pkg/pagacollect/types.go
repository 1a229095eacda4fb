package pagacollect

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider origins
const (
	TestOrigin = "https://beta-collect.paga.com/"
	LiveOrigin = "https://collect.paga.com/"
)

// Endpoint paths appended to the origin
const (
	EndpointBanks                            = "banks"
	EndpointPaymentRequest                   = "paymentRequest"
	EndpointStatus                           = "status"
	EndpointHistory                          = "history"
	EndpointUpdatePersistentPaymentAccount   = "updatePersistentPaymentAccount"
	EndpointDeletePersistentPaymentAccount   = "deletePersistentPaymentAccount"
	EndpointRegisterPersistentPaymentAccount = "registerPersistentPaymentAccount"
	EndpointRefund                           = "refund"
	EndpointGetPersistentPaymentAccount      = "getPersistentPaymentAccount"
)

// DefaultCurrency is applied to payment requests that do not name one
const DefaultCurrency = "NGN"

// PaymentMethod names accepted in PaymentRequest.PaymentMethods
const (
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodFundingUSSD  = "FUNDING_USSD"
	PaymentMethodRequestMoney = "REQUEST_MONEY"
	PaymentMethodAgentPayment = "AGENT_PAYMENT"
)

// ClientConfig holds the credentials and environment selection for the client
type ClientConfig struct {
	ClientID string
	Password string
	APIKey   string
	// Test selects the beta origin instead of the live one
	Test bool
	// BaseURL overrides the origin chosen by Test. Must end with "/".
	BaseURL string
	// Timeout is applied to the default HTTP client. Zero means no timeout;
	// bound calls with a context deadline instead.
	Timeout time.Duration
}

// Validate checks that all credentials are present
func (c *ClientConfig) Validate() error {
	switch {
	case c.ClientID == "":
		return ErrMissingClientID
	case c.Password == "":
		return ErrMissingPassword
	case c.APIKey == "":
		return ErrMissingAPIKey
	}
	return nil
}

// GetBanksRequest is the request for /banks
type GetBanksRequest struct {
	ReferenceNumber string
}

// Payer identifies who is paying
type Payer struct {
	Name        string
	Email       string
	PhoneNumber string
	BankID      string
}

// Payee identifies who is collecting. Name is what the payer sees during
// name enquiry at their bank.
type Payee struct {
	Name                          string
	AccountNumber                 string
	PhoneNumber                   string
	BankID                        string
	BankAccountNumber             string
	FinancialIdentificationNumber string
}

// PaymentRequest is the request for /paymentRequest
type PaymentRequest struct {
	ReferenceNumber string
	Amount          decimal.Decimal
	// Currency defaults to DefaultCurrency when empty
	Currency                 string
	Payer                    Payer
	Payee                    Payee
	ExpiryDateTimeUTC        *string
	IsSuppressMessages       *bool
	PayerCollectionFeeShare  *decimal.Decimal
	PayeeCollectionFeeShare  *decimal.Decimal
	IsAllowPartialPayments   *bool
	CallBackURL              string
	PaymentMethods           []string
	DisplayBankDetailToPayer *bool
}

// PaymentStatusRequest is the request for /status
type PaymentStatusRequest struct {
	ReferenceNumber string
}

// PaymentHistoryRequest is the request for /history.
// ReferenceNumber is optional and omitted from the body when empty.
type PaymentHistoryRequest struct {
	ReferenceNumber  string
	StartDateTimeUTC string
	EndDateTimeUTC   string
}

// RegisterPersistentPaymentAccountRequest is the request for /registerPersistentPaymentAccount.
// The string fields are sent as given, empty or not; the pointer fields are
// omitted when nil.
type RegisterPersistentPaymentAccountRequest struct {
	ReferenceNumber               string
	PhoneNumber                   string
	Email                         string
	FirstName                     string
	LastName                      string
	AccountName                   string
	FinancialIdentificationNumber string
	AccountReference              string
	CreditBankID                  *string
	CreditBankAccountNumber       *string
	CallbackURL                   *string
	FundingTransactionLimit       *decimal.Decimal
}

// UpdatePersistentPaymentAccountRequest is the request for /updatePersistentPaymentAccount.
// Only non-nil optional fields are sent.
type UpdatePersistentPaymentAccountRequest struct {
	ReferenceNumber               string
	AccountIdentifier             string
	PhoneNumber                   *string
	FirstName                     *string
	LastName                      *string
	AccountName                   *string
	FinancialIdentificationNumber *string
	CallbackURL                   *string
	CreditBankID                  *string
	CreditBankAccountNumber       *string
}

// DeletePersistentPaymentAccountRequest is the request for /deletePersistentPaymentAccount
type DeletePersistentPaymentAccountRequest struct {
	ReferenceNumber   string
	AccountIdentifier string
	Reason            *string
}

// GetPersistentPaymentAccountRequest is the request for /getPersistentPaymentAccount
type GetPersistentPaymentAccountRequest struct {
	ReferenceNumber   string
	AccountIdentifier string
}

// RefundRequest is the request for /refund
type RefundRequest struct {
	ReferenceNumber string
	RefundAmount    decimal.Decimal
	Currency        string
	Reason          *string
}

// Bank is an entry of BanksResponse
type Bank struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// BanksResponse is the payload returned by /banks
type BanksResponse struct {
	ReferenceNumber string     `json:"referenceNumber"`
	StatusCode      StatusCode `json:"statusCode"`
	StatusMessage   string     `json:"statusMessage"`
	Banks           []Bank     `json:"banks"`
}

// PaymentMethodDetail describes how the payer can complete a payment
type PaymentMethodDetail struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// PaymentRequestResponse is the payload returned by /paymentRequest and /status
type PaymentRequestResponse struct {
	ReferenceNumber        string                `json:"referenceNumber"`
	StatusCode             StatusCode            `json:"statusCode"`
	StatusMessage          string                `json:"statusMessage"`
	RequestAmount          *decimal.Decimal      `json:"requestAmount,omitempty"`
	TotalPaymentAmount     *decimal.Decimal      `json:"totalPaymentAmount,omitempty"`
	Currency               string                `json:"currency,omitempty"`
	PaymentMethods         []PaymentMethodDetail `json:"paymentMethods"`
	ExpiryDateTimeUTC      *string               `json:"expiryDateTimeUTC"`
	PayerPagaAccountHolder bool                  `json:"payerPagaAccountHolder"`
	Status                 string                `json:"status,omitempty"`
}

// HistoryItem is one operation in HistoryResponse
type HistoryItem struct {
	DateTime         string          `json:"datetime"`
	ReferenceNumber  string          `json:"referenceNumber"`
	AccountNumber    string          `json:"accountNumber"`
	AccountReference *string         `json:"accountReference"`
	Operation        string          `json:"operation"`
	Action           string          `json:"action"`
	Amount           decimal.Decimal `json:"amount"`
	Status           string          `json:"status"`
}

// HistoryResponse is the payload returned by /history
type HistoryResponse struct {
	ReferenceNumber string        `json:"referenceNumber"`
	StatusCode      StatusCode    `json:"statusCode"`
	StatusMessage   string        `json:"statusMessage"`
	ItemCount       int           `json:"itemCount"`
	Items           []HistoryItem `json:"items"`
}

// PersistentAccountResponse is the payload returned by the persistent
// payment account endpoints
type PersistentAccountResponse struct {
	ReferenceNumber               string     `json:"referenceNumber"`
	StatusCode                    StatusCode `json:"statusCode"`
	StatusMessage                 string     `json:"statusMessage"`
	AccountReference              string     `json:"accountReference"`
	AccountNumber                 string     `json:"accountNumber"`
	AccountName                   string     `json:"accountName,omitempty"`
	PhoneNumber                   string     `json:"phoneNumber,omitempty"`
	FirstName                     string     `json:"firstName,omitempty"`
	LastName                      string     `json:"lastName,omitempty"`
	FinancialIdentificationNumber string     `json:"financialIdentificationNumber,omitempty"`
	CreditBankID                  string     `json:"creditBankId,omitempty"`
	CreditBankAccountNumber       string     `json:"creditBankAccountNumber,omitempty"`
	CallbackURL                   string     `json:"callbackUrl,omitempty"`
	Message                       *string    `json:"message,omitempty"`
}

// RefundResponse is the payload returned by /refund
type RefundResponse struct {
	ReferenceNumber   string          `json:"referenceNumber"`
	StatusCode        StatusCode      `json:"statusCode"`
	StatusMessage     string          `json:"statusMessage"`
	RefundAmount      decimal.Decimal `json:"refundAmount"`
	AccountNumber     string          `json:"accountNumber"`
	Currency          string          `json:"currency"`
	RefundDestination string          `json:"refundDestination"`
}
