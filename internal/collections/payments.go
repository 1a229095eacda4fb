package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

// amountScale is the number of decimal places kept for amounts
const amountScale = 2

const paymentColumns = `id, reference_number, amount, currency, payer_name, payer_email, payer_phone_number,
	payee_name, payee_account_number, callback_url, payment_methods, status, refunded_amount,
	provider_status_code, provider_message, created_at, updated_at`

// PaymentFilter defines criteria for listing payment requests
type PaymentFilter struct {
	Status domain.PaymentStatus
	Limit  int
}

// CreatePaymentRequest validates req, records it and sends it to the
// provider. A reference number is generated when req has none; currency and
// callback URL fall back to the service defaults. When the provider rejects
// the request the record is kept as rejected and a *pagacollect.StatusError
// is returned with it.
func (s *Service) CreatePaymentRequest(ctx context.Context, req *pagacollect.PaymentRequest) (*domain.PaymentRequest, *pagacollect.PaymentRequestResponse, error) {
	if req == nil {
		return nil, nil, ErrInvalidPaymentRequest
	}
	if !validAmount(req.Amount) {
		return nil, nil, ErrInvalidAmount
	}
	if req.Payer.Name == "" || req.Payee.Name == "" {
		return nil, nil, fmt.Errorf("%w: payer and payee names are required", ErrInvalidPaymentRequest)
	}
	if err := s.allow(pagacollect.EndpointPaymentRequest); err != nil {
		return nil, nil, err
	}

	r := *req
	if r.ReferenceNumber == "" {
		r.ReferenceNumber = NewReference()
	}
	if r.Currency == "" {
		r.Currency = s.currency
	}
	unit, err := currency.ParseISO(r.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, r.Currency)
	}
	r.Currency = unit.String()
	if r.CallBackURL == "" {
		r.CallBackURL = s.callbackURL
	}

	now := time.Now().UTC()
	record := &domain.PaymentRequest{
		ID:                 uuid.New().String(),
		ReferenceNumber:    r.ReferenceNumber,
		Amount:             domain.Money{Amount: r.Amount, Currency: r.Currency},
		PayerName:          r.Payer.Name,
		PayerEmail:         r.Payer.Email,
		PayerPhoneNumber:   r.Payer.PhoneNumber,
		PayeeName:          r.Payee.Name,
		PayeeAccountNumber: r.Payee.AccountNumber,
		CallbackURL:        r.CallBackURL,
		PaymentMethods:     r.PaymentMethods,
		Status:             domain.PaymentStatusPending,
		RefundedAmount:     decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if record.PaymentMethods == nil {
		record.PaymentMethods = []string{}
	}

	if err := s.insertPaymentRequest(ctx, record); err != nil {
		return nil, nil, err
	}

	result, err := s.call(ctx, pagacollect.EndpointPaymentRequest, r.ReferenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.PaymentRequest(ctx, &r)
	})
	if result == nil {
		// transport or decode failure: the request stays pending and can be
		// reconciled with RefreshStatus
		return record, nil, err
	}

	record.ProviderStatusCode, record.ProviderMessage = statusDetails(result)
	if err != nil {
		record.Status = domain.PaymentStatusRejected
	}
	if uerr := s.updatePaymentStatus(ctx, record); uerr != nil {
		return record, nil, uerr
	}
	if err != nil {
		return record, nil, err
	}

	var resp pagacollect.PaymentRequestResponse
	if derr := result.Decode(&resp); derr != nil {
		return record, nil, fmt.Errorf("failed to decode payment request response: %w", derr)
	}

	s.record(ctx, audit.EventPaymentRequested, domain.SeverityInfo,
		fmt.Sprintf("Payment request of %s", record.Amount),
		map[string]any{"amount": record.Amount.Amount.String(), "currency": record.Amount.Currency},
		audit.WithReference(record.ReferenceNumber))

	return record, &resp, nil
}

func (s *Service) insertPaymentRequest(ctx context.Context, p *domain.PaymentRequest) error {
	methods, err := json.Marshal(p.PaymentMethods)
	if err != nil {
		return fmt.Errorf("failed to encode payment methods: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_requests (id, reference_number, amount, currency, payer_name, payer_email, payer_phone_number,
			payee_name, payee_account_number, callback_url, payment_methods, status, refunded_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (reference_number) DO NOTHING
	`, p.ID, p.ReferenceNumber, p.Amount.Amount, p.Amount.Currency, p.PayerName, nullString(p.PayerEmail),
		nullString(p.PayerPhoneNumber), p.PayeeName, nullString(p.PayeeAccountNumber), nullString(p.CallbackURL),
		string(methods), p.Status, p.RefundedAmount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inserted payment request: %w", err)
	}
	if n == 0 {
		return ErrDuplicateReference
	}
	return nil
}

func (s *Service) updatePaymentStatus(ctx context.Context, p *domain.PaymentRequest) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_requests
		SET status = $1, provider_status_code = $2, provider_message = $3, updated_at = $4
		WHERE id = $5
	`, p.Status, nullString(p.ProviderStatusCode), nullString(p.ProviderMessage), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment request: %w", err)
	}
	return nil
}

// GetPaymentRequest returns the local record for a reference number
func (s *Service) GetPaymentRequest(ctx context.Context, referenceNumber string) (*domain.PaymentRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_requests WHERE reference_number = $1`, referenceNumber)
	p, err := scanPaymentRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentRequestNotFound
		}
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	return p, nil
}

// ListPaymentRequests returns local records, newest first
func (s *Service) ListPaymentRequests(ctx context.Context, filter *PaymentFilter) ([]*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests`
	args := []any{}
	if filter != nil && filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	limit := 100
	if filter != nil && filter.Limit > 0 {
		limit = filter.Limit
	}
	query += fmt.Sprintf(` LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.PaymentRequest
	for rows.Next() {
		p, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment request: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaymentRequest(row scanner) (*domain.PaymentRequest, error) {
	var p domain.PaymentRequest
	var email, phone, account, callback, code, message sql.NullString
	var methods []byte

	err := row.Scan(&p.ID, &p.ReferenceNumber, &p.Amount.Amount, &p.Amount.Currency, &p.PayerName, &email, &phone,
		&p.PayeeName, &account, &callback, &methods, &p.Status, &p.RefundedAmount,
		&code, &message, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.PayerEmail = email.String
	p.PayerPhoneNumber = phone.String
	p.PayeeAccountNumber = account.String
	p.CallbackURL = callback.String
	p.ProviderStatusCode = code.String
	p.ProviderMessage = message.String
	if err := json.Unmarshal(methods, &p.PaymentMethods); err != nil {
		return nil, fmt.Errorf("failed to decode payment methods: %w", err)
	}
	return &p, nil
}

// providerStatus maps the provider's textual status to a local status
func providerStatus(status string) (domain.PaymentStatus, bool) {
	switch strings.ToUpper(status) {
	case "SUCCESSFUL", "SUCCESS", "PAID", "COMPLETED":
		return domain.PaymentStatusPaid, true
	case "FAILED", "EXPIRED", "CANCELLED", "CANCELED", "DECLINED":
		return domain.PaymentStatusFailed, true
	case "PENDING", "":
		return domain.PaymentStatusPending, false
	}
	return "", false
}

// RefreshStatus asks the provider for the status of a payment request and
// applies any change to the local record
func (s *Service) RefreshStatus(ctx context.Context, referenceNumber string) (*domain.PaymentRequest, *pagacollect.PaymentRequestResponse, error) {
	record, err := s.GetPaymentRequest(ctx, referenceNumber)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.call(ctx, pagacollect.EndpointStatus, referenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.PaymentStatus(ctx, &pagacollect.PaymentStatusRequest{ReferenceNumber: referenceNumber})
	})
	if err != nil {
		return record, nil, err
	}

	var resp pagacollect.PaymentRequestResponse
	if err := result.Decode(&resp); err != nil {
		return record, nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	next, ok := providerStatus(resp.Status)
	if !ok || record.Status.Final() || next == record.Status {
		return record, &resp, nil
	}
	// refunds are local state the provider status does not reflect
	if record.Status == domain.PaymentStatusPartiallyRefunded {
		return record, &resp, nil
	}

	previous := record.Status
	record.Status = next
	record.ProviderStatusCode, record.ProviderMessage = statusDetails(result)
	if err := s.updatePaymentStatus(ctx, record); err != nil {
		return record, &resp, err
	}

	s.logger.Info("payment status changed",
		zap.String("reference_number", referenceNumber),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))
	s.record(ctx, audit.EventPaymentStatus, domain.SeverityInfo,
		fmt.Sprintf("Payment status changed from %s to %s", previous, next), nil,
		audit.WithReference(referenceNumber))
	s.publish(domain.Event{
		Type:            domain.EventStatusChanged,
		ReferenceNumber: referenceNumber,
		Status:          next,
	})

	return record, &resp, nil
}

// Refund issues a refund against a paid payment request. Refunds above the
// unrefunded amount are rejected before the provider is called. The payment
// request row stays locked from the balance check until the refund is
// stored, so concurrent refunds against one request are serialized.
func (s *Service) Refund(ctx context.Context, referenceNumber string, amount decimal.Decimal, reason string) (*domain.Refund, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if err := s.allow(pagacollect.EndpointRefund); err != nil {
		return nil, err
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	row := dbTx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_requests WHERE reference_number = $1 FOR UPDATE`, referenceNumber)
	record, err := scanPaymentRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentRequestNotFound
		}
		return nil, fmt.Errorf("failed to lock payment request: %w", err)
	}
	if !record.Status.Refundable() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotRefundable, record.Status)
	}
	if amount.GreaterThan(record.Refundable()) {
		s.record(ctx, audit.EventRefundRejected, domain.SeverityWarning,
			fmt.Sprintf("Refund of %s exceeds unrefunded %s", amount, record.Refundable()),
			nil, audit.WithReference(referenceNumber))
		return nil, ErrRefundExceedsBalance
	}

	req := &pagacollect.RefundRequest{
		ReferenceNumber: referenceNumber,
		RefundAmount:    amount,
		Currency:        record.Amount.Currency,
	}
	if reason != "" {
		req.Reason = &reason
	}

	result, callErr := s.call(ctx, pagacollect.EndpointRefund, referenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.PaymentRequestRefund(ctx, req)
	})
	if result == nil {
		return nil, callErr
	}

	refund := &domain.Refund{
		ID:               uuid.New().String(),
		PaymentRequestID: record.ID,
		ReferenceNumber:  referenceNumber,
		Amount:           domain.Money{Amount: amount, Currency: record.Amount.Currency},
		Reason:           reason,
		Status:           domain.RefundStatusCompleted,
		CreatedAt:        time.Now().UTC(),
	}
	refund.ProviderStatusCode, refund.ProviderMessage = statusDetails(result)
	if callErr != nil {
		refund.Status = domain.RefundStatusFailed
	}

	if err := storeRefund(ctx, dbTx, record, refund); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}
	if callErr != nil {
		return refund, callErr
	}

	s.record(ctx, audit.EventRefundIssued, domain.SeverityInfo,
		fmt.Sprintf("Refund of %s", refund.Amount),
		map[string]any{"refund_id": refund.ID, "amount": amount.String(), "reason": reason},
		audit.WithReference(referenceNumber))
	s.publish(domain.Event{
		Type:            domain.EventRefundIssued,
		ReferenceNumber: referenceNumber,
		Status:          record.Status,
		Amount:          &refund.Amount,
	})

	return refund, nil
}

// storeRefund records the refund and, when it completed, moves the locked
// payment request's refunded amount and status
func storeRefund(ctx context.Context, dbTx *sql.Tx, record *domain.PaymentRequest, refund *domain.Refund) error {
	_, err := dbTx.ExecContext(ctx, `
		INSERT INTO refunds (id, payment_request_id, reference_number, amount, currency, reason, status,
			provider_status_code, provider_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, refund.ID, refund.PaymentRequestID, refund.ReferenceNumber, refund.Amount.Amount, refund.Amount.Currency,
		nullString(refund.Reason), refund.Status, nullString(refund.ProviderStatusCode),
		nullString(refund.ProviderMessage), refund.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refund: %w", err)
	}

	if refund.Status != domain.RefundStatusCompleted {
		return nil
	}

	refunded := record.RefundedAmount.Add(refund.Amount.Amount)
	status := domain.PaymentStatusPartiallyRefunded
	if refunded.GreaterThanOrEqual(record.Amount.Amount) {
		status = domain.PaymentStatusRefunded
	}

	_, err = dbTx.ExecContext(ctx, `
		UPDATE payment_requests SET refunded_amount = refunded_amount + $1, status = $2, updated_at = $3 WHERE id = $4
	`, refund.Amount.Amount, status, refund.CreatedAt, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment request: %w", err)
	}
	record.RefundedAmount = refunded
	record.Status = status
	record.UpdatedAt = refund.CreatedAt
	return nil
}

// validAmount reports whether d is positive and fits the two decimal places
// the ledger stores
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(amountScale))
}

// ListRefunds returns the refunds issued against a payment request
func (s *Service) ListRefunds(ctx context.Context, referenceNumber string) ([]*domain.Refund, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_request_id, reference_number, amount, currency, reason, status,
			provider_status_code, provider_message, created_at
		FROM refunds WHERE reference_number = $1 ORDER BY created_at
	`, referenceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var out []*domain.Refund
	for rows.Next() {
		var r domain.Refund
		var reason, code, message sql.NullString
		if err := rows.Scan(&r.ID, &r.PaymentRequestID, &r.ReferenceNumber, &r.Amount.Amount, &r.Amount.Currency,
			&reason, &r.Status, &code, &message, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		r.Reason = reason.String
		r.ProviderStatusCode = code.String
		r.ProviderMessage = message.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
