package pagacollect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client is a Paga Collect API client. It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	signer     *Signer
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger enables diagnostic logging. Credentials and hashes are never logged.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Paga Collect client
func NewClient(config *ClientConfig, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, ErrMissingConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     *config,
		signer:     NewSigner(config),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Signer returns the signer bound to the client credentials
func (c *Client) Signer() *Signer {
	return c.signer
}

// Test reports whether the client targets the test environment
func (c *Client) Test() bool {
	return c.config.Test
}

// send performs one signed POST and normalizes the response
func (c *Client) send(ctx context.Context, endpoint, hashInput string, body Fields) (*Result, error) {
	start := time.Now()
	log := c.logger.With(zap.String("endpoint", endpoint))

	bodyBytes, err := json.Marshal(body.Present())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signer.BaseURL(endpoint), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = c.signer.Headers(hashInput)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	payload, err := decodePayload(respBody)
	if err != nil {
		log.Debug("response is not a JSON object",
			zap.Int("http_status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)))
		return nil, &DecodeError{HTTPStatus: resp.StatusCode, Body: string(respBody), Err: err}
	}

	result := CheckError(payload)
	if ce := log.Check(zap.DebugLevel, "request completed"); ce != nil {
		code := payload["statusCode"]
		ce.Write(
			zap.String("reference_number", payload.ReferenceNumber()),
			zap.Int("http_status", resp.StatusCode),
			zap.Any("status_code", code),
			zap.Bool("error", result.Error),
			zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}

func decodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("response body is null")
	}
	return payload, nil
}

// GetBanks lists the banks supported for collection
func (c *Client) GetBanks(ctx context.Context, req *GetBanksRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
	}
	return c.send(ctx, EndpointBanks, req.ReferenceNumber, body)
}

// PaymentRequest creates a payment request. Currency defaults to NGN.
func (c *Client) PaymentRequest(ctx context.Context, req *PaymentRequest) (*Result, error) {
	body, hash := paymentRequestFields(req)
	return c.send(ctx, EndpointPaymentRequest, hash.Present().Join(), body)
}

func paymentRequestFields(req *PaymentRequest) (body, hash Fields) {
	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	payer := Fields{
		{"email", orNull(req.Payer.Email)},
		{"name", req.Payer.Name},
		{"bankId", orNull(req.Payer.BankID)},
		{"phoneNumber", orNull(req.Payer.PhoneNumber)},
	}
	payee := Fields{
		{"bankAccountNumber", orNull(req.Payee.BankAccountNumber)},
		{"bankId", orNull(req.Payee.BankID)},
		{"name", req.Payee.Name},
		{"phoneNumber", orNull(req.Payee.PhoneNumber)},
		{"accountNumber", orNull(req.Payee.AccountNumber)},
		{"financialIdentificationNumber", orNull(req.Payee.FinancialIdentificationNumber)},
	}

	var callBackURL any
	if req.CallBackURL != "" {
		callBackURL = req.CallBackURL
	}

	body = Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"amount", number(req.Amount)},
		{"currency", currency},
		{"payer", payer},
		{"payee", payee},
		{"expiryDateTimeUTC", req.ExpiryDateTimeUTC},
		{"isSuppressMessages", req.IsSuppressMessages},
		{"payerCollectionFeeShare", optionalNumber(req.PayerCollectionFeeShare)},
		{"payeeCollectionFeeShare", optionalNumber(req.PayeeCollectionFeeShare)},
		{"isAllowPartialPayments", req.IsAllowPartialPayments},
		{"callBackUrl", callBackURL},
		{"paymentMethods", req.PaymentMethods},
		{"displayBankDetailToPayer", req.DisplayBankDetailToPayer},
	}

	hash = Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"amount", number(req.Amount)},
		{"currency", currency},
		{"payerPhoneNumber", orNull(req.Payer.PhoneNumber)},
		{"payerEmail", orNull(req.Payer.Email)},
		{"payeeAccountNumber", orNull(req.Payee.AccountNumber)},
		{"payeePhoneNumber", orNull(req.Payee.PhoneNumber)},
		{"payeeBankId", orNull(req.Payee.BankID)},
		{"payeeBankAccountNumber", orNull(req.Payee.BankAccountNumber)},
	}
	return body, hash
}

// PaymentStatus queries the status of a payment request
func (c *Client) PaymentStatus(ctx context.Context, req *PaymentStatusRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
	}
	return c.send(ctx, EndpointStatus, req.ReferenceNumber, body)
}

// PaymentHistory lists operations between two UTC timestamps
func (c *Client) PaymentHistory(ctx context.Context, req *PaymentHistoryRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", orNull(req.ReferenceNumber)},
		{"startDateTimeUTC", req.StartDateTimeUTC},
		{"endDateTimeUTC", req.EndDateTimeUTC},
	}
	return c.send(ctx, EndpointHistory, req.ReferenceNumber, body)
}

// RegisterPersistentPaymentAccount creates a persistent virtual account
func (c *Client) RegisterPersistentPaymentAccount(ctx context.Context, req *RegisterPersistentPaymentAccountRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"phoneNumber", req.PhoneNumber},
		{"email", req.Email},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"accountName", req.AccountName},
		{"financialIdentificationNumber", req.FinancialIdentificationNumber},
		{"accountReference", req.AccountReference},
		{"creditBankId", req.CreditBankID},
		{"creditBankAccountNumber", req.CreditBankAccountNumber},
		{"callbackUrl", req.CallbackURL},
		{"fundingTransactionLimit", optionalNumber(req.FundingTransactionLimit)},
	}
	hash := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountReference", req.AccountReference},
		{"financialIdentificationNumber", req.FinancialIdentificationNumber},
		{"creditBankId", req.CreditBankID},
		{"creditBankAccountNumber", req.CreditBankAccountNumber},
		{"callbackUrl", req.CallbackURL},
	}
	return c.send(ctx, EndpointRegisterPersistentPaymentAccount, hash.Present().Join(), body)
}

// UpdatePersistentPaymentAccount changes the details of a persistent account
func (c *Client) UpdatePersistentPaymentAccount(ctx context.Context, req *UpdatePersistentPaymentAccountRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountIdentifier", req.AccountIdentifier},
		{"phoneNumber", req.PhoneNumber},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"accountName", req.AccountName},
		{"financialIdentificationNumber", req.FinancialIdentificationNumber},
		{"callbackUrl", req.CallbackURL},
		{"creditBankId", req.CreditBankID},
		{"creditBankAccountNumber", req.CreditBankAccountNumber},
	}
	hash := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountIdentifier", req.AccountIdentifier},
		{"financialIdentificationNumber", req.FinancialIdentificationNumber},
		{"creditBankId", req.CreditBankID},
		{"creditBankAccountNumber", req.CreditBankAccountNumber},
		{"callbackUrl", req.CallbackURL},
	}
	return c.send(ctx, EndpointUpdatePersistentPaymentAccount, hash.Present().Join(), body)
}

// DeletePersistentPaymentAccount removes a persistent account
func (c *Client) DeletePersistentPaymentAccount(ctx context.Context, req *DeletePersistentPaymentAccountRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountIdentifier", req.AccountIdentifier},
		{"reason", req.Reason},
	}
	hash := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountIdentifier", req.AccountIdentifier},
	}
	return c.send(ctx, EndpointDeletePersistentPaymentAccount, hash.Join(), body)
}

// GetPersistentPaymentAccount fetches the details of a persistent account
func (c *Client) GetPersistentPaymentAccount(ctx context.Context, req *GetPersistentPaymentAccountRequest) (*Result, error) {
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountIdentifier", req.AccountIdentifier},
	}
	hash := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"accountIdentifier", req.AccountIdentifier},
	}
	return c.send(ctx, EndpointGetPersistentPaymentAccount, hash.Present().Join(), body)
}

// PaymentRequestRefund refunds all or part of a payment request
func (c *Client) PaymentRequestRefund(ctx context.Context, req *RefundRequest) (*Result, error) {
	var currency any
	if req.Currency != "" {
		currency = req.Currency
	}
	body := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"refundAmount", number(req.RefundAmount)},
		{"currency", currency},
		{"reason", req.Reason},
	}
	hash := Fields{
		{"referenceNumber", req.ReferenceNumber},
		{"refundAmount", number(req.RefundAmount)},
	}
	return c.send(ctx, EndpointRefund, hash.Present().Join(), body)
}
