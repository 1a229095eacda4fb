// Package audit records every provider call and callback the service handles
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexbotov/pagacollect/internal/domain"
)

// Event types
const (
	EventProviderCall       = "provider_call"
	EventProviderFailure    = "provider_failure"
	EventPaymentRequested   = "payment_requested"
	EventPaymentStatus      = "payment_status"
	EventRefundIssued       = "refund_issued"
	EventRefundRejected     = "refund_rejected"
	EventAccountRegistered  = "account_registered"
	EventAccountUpdated     = "account_updated"
	EventAccountDeleted     = "account_deleted"
	EventCallbackReceived   = "callback_received"
	EventCallbackRejected   = "callback_rejected"
	EventOperatorLogin      = "operator_login"
	EventOperatorLoginError = "operator_login_failed"
	EventCollectionsPaused  = "collections_paused"
	EventCollectionsResumed = "collections_resumed"
	EventOperationDisabled  = "operation_disabled"
	EventOperationEnabled   = "operation_enabled"
)

// Service provides audit logging functionality
type Service struct {
	db *sql.DB
}

// New creates a new audit service
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// LogEvent records a significant event
func (s *Service) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var data any
	if len(event.Data) > 0 {
		data = string(event.Data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, severity, timestamp, reference_number, operator_id, description, data, ip_address, component)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, event.ID, event.Type, event.Severity, event.Timestamp, event.ReferenceNumber, event.OperatorID,
		event.Description, data, event.IPAddress, event.Component)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// Log is a convenience method for logging events
func (s *Service) Log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data any, opts ...EventOption) error {
	event := &domain.AuditEvent{
		Type:        eventType,
		Severity:    severity,
		Description: description,
		Component:   "collections",
	}

	if data != nil {
		if jsonData, err := json.Marshal(data); err == nil {
			event.Data = jsonData
		}
	}

	for _, opt := range opts {
		opt(event)
	}

	return s.LogEvent(ctx, event)
}

// EventOption is a functional option for configuring audit events
type EventOption func(*domain.AuditEvent)

// WithReference sets the provider reference number for the event
func WithReference(referenceNumber string) EventOption {
	return func(e *domain.AuditEvent) {
		if referenceNumber != "" {
			e.ReferenceNumber = &referenceNumber
		}
	}
}

// WithOperator sets the operator ID for the event
func WithOperator(operatorID string) EventOption {
	return func(e *domain.AuditEvent) {
		if operatorID != "" {
			e.OperatorID = &operatorID
		}
	}
}

// WithIP sets the IP address for the event
func WithIP(ip string) EventOption {
	return func(e *domain.AuditEvent) {
		e.IPAddress = ip
	}
}

// WithComponent sets the component for the event
func WithComponent(component string) EventOption {
	return func(e *domain.AuditEvent) {
		e.Component = component
	}
}

// GetEvents retrieves audit events with optional filtering
func (s *Service) GetEvents(ctx context.Context, filter *EventFilter) ([]*domain.AuditEvent, error) {
	query := `SELECT id, type, severity, timestamp, reference_number, operator_id, description, data, ip_address, component
			  FROM audit_events WHERE 1=1`
	args := []any{}
	paramIdx := 1

	if filter != nil {
		if filter.ReferenceNumber != "" {
			query += fmt.Sprintf(" AND reference_number = $%d", paramIdx)
			args = append(args, filter.ReferenceNumber)
			paramIdx++
		}
		if filter.Type != "" {
			query += fmt.Sprintf(" AND type = $%d", paramIdx)
			args = append(args, filter.Type)
			paramIdx++
		}
		if !filter.From.IsZero() {
			query += fmt.Sprintf(" AND timestamp >= $%d", paramIdx)
			args = append(args, filter.From)
			paramIdx++
		}
		if !filter.To.IsZero() {
			query += fmt.Sprintf(" AND timestamp <= $%d", paramIdx)
			args = append(args, filter.To)
			paramIdx++
		}
	}

	query += " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", paramIdx)
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var reference, operator, data, ip sql.NullString

		err := rows.Scan(&event.ID, &event.Type, &event.Severity, &event.Timestamp,
			&reference, &operator, &event.Description, &data, &ip, &event.Component)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		if reference.Valid {
			event.ReferenceNumber = &reference.String
		}
		if operator.Valid {
			event.OperatorID = &operator.String
		}
		if data.Valid {
			event.Data = json.RawMessage(data.String)
		}
		event.IPAddress = ip.String

		events = append(events, &event)
	}

	return events, rows.Err()
}

// EventFilter defines criteria for filtering audit events
type EventFilter struct {
	ReferenceNumber string
	Type            string
	From            time.Time
	To              time.Time
	Limit           int
}
