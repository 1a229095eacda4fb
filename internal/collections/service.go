// Package collections keeps a local ledger of payment requests, refunds and
// persistent accounts, and drives the provider through pkg/pagacollect.
package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

var (
	ErrPaymentRequestNotFound = errors.New("payment request not found")
	ErrDuplicateReference     = errors.New("reference number already used")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidPaymentRequest  = errors.New("invalid payment request")
	ErrNotRefundable          = errors.New("payment request is not refundable")
	ErrRefundExceedsBalance   = errors.New("refund exceeds unrefunded amount")
	ErrAccountNotFound        = errors.New("persistent account not found")
	ErrInvalidAccount         = errors.New("invalid persistent account")
	ErrInvalidCallback        = errors.New("invalid callback payload")
)

// Notifier receives collection events
type Notifier interface {
	Publish(event domain.Event)
}

// Gate decides whether a provider operation may start. Operations are named
// by their endpoint.
type Gate interface {
	CheckOperation(operation string) error
}

// Service provides collection functionality
type Service struct {
	db          *sql.DB
	client      *pagacollect.Client
	audit       *audit.Service
	logger      *zap.Logger
	metrics     *Metrics
	notifier    Notifier
	gate        Gate
	currency    string
	callbackURL string
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the collectors the service reports to
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNotifier sets the receiver of collection events
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithGate sets the switch consulted before operations that change state at
// the provider
func WithGate(g Gate) Option {
	return func(s *Service) {
		s.gate = g
	}
}

// WithCurrency sets the currency used when a request names none
func WithCurrency(currency string) Option {
	return func(s *Service) {
		s.currency = currency
	}
}

// WithCallbackURL sets the callback URL used when a request names none
func WithCallbackURL(url string) Option {
	return func(s *Service) {
		s.callbackURL = url
	}
}

// New creates a new collection service
func New(db *sql.DB, client *pagacollect.Client, auditSvc *audit.Service, opts ...Option) *Service {
	s := &Service{
		db:       db,
		client:   client,
		audit:    auditSvc,
		logger:   zap.NewNop(),
		currency: pagacollect.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return s
}

// NewReference returns a fresh reference number for a provider call
func NewReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// call runs one provider operation, records it, and turns a business
// failure into a *pagacollect.StatusError. The result is returned alongside
// a StatusError so callers can persist the provider's answer.
func (s *Service) call(ctx context.Context, endpoint, reference string, fn func(context.Context) (*pagacollect.Result, error)) (*pagacollect.Result, error) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.observeCall(endpoint, OutcomeError, elapsed)
		s.logger.Error("provider call failed",
			zap.String("endpoint", endpoint),
			zap.String("reference_number", reference),
			zap.Error(err))
		s.record(ctx, audit.EventProviderFailure, domain.SeverityError,
			fmt.Sprintf("%s call failed", endpoint),
			map[string]any{"endpoint": endpoint, "error": err.Error()},
			audit.WithReference(reference))
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}

	outcome, severity := OutcomeSuccess, domain.SeverityInfo
	if result.Error {
		outcome, severity = OutcomeFailure, domain.SeverityWarning
	}
	s.metrics.observeCall(endpoint, outcome, elapsed)
	s.record(ctx, audit.EventProviderCall, severity,
		fmt.Sprintf("%s call completed", endpoint),
		map[string]any{
			"endpoint":       endpoint,
			"status_code":    result.Response["statusCode"],
			"status_message": result.Response.StatusMessage(),
			"duration_ms":    elapsed.Milliseconds(),
		},
		audit.WithReference(reference))

	return result, result.Err(endpoint)
}

// record writes an audit event; audit failures are logged, not returned
func (s *Service) record(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data any, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, eventType, severity, description, data, opts...); err != nil {
		s.logger.Warn("failed to record audit event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *Service) allow(operation string) error {
	if s.gate == nil {
		return nil
	}
	return s.gate.CheckOperation(operation)
}

func (s *Service) publish(event domain.Event) {
	if s.notifier == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.notifier.Publish(event)
}

// statusDetails extracts the provider code and message for persistence
func statusDetails(result *pagacollect.Result) (code, message string) {
	if result == nil {
		return "", ""
	}
	if c, ok := result.Response["statusCode"]; ok && c != nil {
		code = fmt.Sprint(c)
	}
	return code, result.Response.StatusMessage()
}

// ListBanks returns the banks the provider supports
func (s *Service) ListBanks(ctx context.Context) ([]pagacollect.Bank, error) {
	ref := NewReference()
	result, err := s.call(ctx, pagacollect.EndpointBanks, ref, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.GetBanks(ctx, &pagacollect.GetBanksRequest{ReferenceNumber: ref})
	})
	if err != nil {
		return nil, err
	}

	var banks pagacollect.BanksResponse
	if err := result.Decode(&banks); err != nil {
		return nil, fmt.Errorf("failed to decode banks: %w", err)
	}
	return banks.Banks, nil
}

// History returns the provider's operation history between two timestamps
func (s *Service) History(ctx context.Context, start, end string) (*pagacollect.HistoryResponse, error) {
	ref := NewReference()
	result, err := s.call(ctx, pagacollect.EndpointHistory, ref, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.PaymentHistory(ctx, &pagacollect.PaymentHistoryRequest{
			ReferenceNumber:  ref,
			StartDateTimeUTC: start,
			EndDateTimeUTC:   end,
		})
	})
	if err != nil {
		return nil, err
	}

	var history pagacollect.HistoryResponse
	if err := result.Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &history, nil
}
