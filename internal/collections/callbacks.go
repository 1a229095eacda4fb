package collections

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

// ApplyCallback stores a provider callback and, when it reports a
// successful payment for a pending request, marks that request paid
func (s *Service) ApplyCallback(ctx context.Context, body []byte) (*domain.Callback, error) {
	payload, err := parseCallback(body)
	if err != nil {
		s.metrics.observeCallback(CallbackInvalid)
		s.record(ctx, audit.EventCallbackRejected, domain.SeverityWarning, "Callback payload rejected",
			map[string]any{"error": err.Error()})
		return nil, err
	}

	cb := &domain.Callback{
		ID:              uuid.New().String(),
		ReferenceNumber: payload.ReferenceNumber(),
		AccountNumber:   stringField(payload, "accountNumber"),
		Payload:         json.RawMessage(body),
		ReceivedAt:      time.Now().UTC(),
	}
	if v, ok := payload["statusCode"]; ok && v != nil {
		cb.StatusCode = fmt.Sprint(v)
	}
	if n, ok := payload["amount"].(json.Number); ok {
		if d, err := decimal.NewFromString(n.String()); err == nil {
			cb.Amount = &d
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO callbacks (id, reference_number, account_number, status_code, amount, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cb.ID, nullString(cb.ReferenceNumber), nullString(cb.AccountNumber), nullString(cb.StatusCode),
		cb.Amount, string(cb.Payload), cb.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store callback: %w", err)
	}

	outcome := CallbackUnmatched
	event := domain.Event{
		Type:            domain.EventCallbackReceived,
		ReferenceNumber: cb.ReferenceNumber,
		AccountNumber:   cb.AccountNumber,
		Timestamp:       cb.ReceivedAt,
	}
	if cb.Amount != nil {
		event.Amount = &domain.Money{Amount: *cb.Amount, Currency: stringField(payload, "currency")}
	}

	if cb.ReferenceNumber != "" {
		record, err := s.GetPaymentRequest(ctx, cb.ReferenceNumber)
		switch {
		case errors.Is(err, ErrPaymentRequestNotFound):
		case err != nil:
			return cb, err
		default:
			outcome = CallbackMatched
			event.Status = record.Status
			if !pagacollect.CheckError(payload).Error && record.Status == domain.PaymentStatusPending {
				record.Status = domain.PaymentStatusPaid
				record.ProviderStatusCode = cb.StatusCode
				record.ProviderMessage = payload.StatusMessage()
				if err := s.updatePaymentStatus(ctx, record); err != nil {
					return cb, err
				}
				event.Status = record.Status
				s.publish(domain.Event{
					Type:            domain.EventStatusChanged,
					ReferenceNumber: record.ReferenceNumber,
					Status:          record.Status,
				})
			}
		}
	}

	s.metrics.observeCallback(outcome)
	s.logger.Info("callback received",
		zap.String("reference_number", cb.ReferenceNumber),
		zap.String("account_number", cb.AccountNumber),
		zap.String("status_code", cb.StatusCode),
		zap.String("outcome", outcome))
	s.record(ctx, audit.EventCallbackReceived, domain.SeverityInfo,
		fmt.Sprintf("Callback received (%s)", outcome),
		map[string]any{"callback_id": cb.ID, "status_code": cb.StatusCode},
		audit.WithReference(cb.ReferenceNumber))
	s.publish(event)

	return cb, nil
}

func parseCallback(body []byte) (pagacollect.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload pagacollect.Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidCallback)
	}
	return payload, nil
}

func stringField(p pagacollect.Payload, name string) string {
	switch v := p[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}
