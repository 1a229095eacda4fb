// Package control lets an operator stop new provider operations.
//
// Collections can be paused as a whole, or single operations (provider
// endpoints such as "refund") can be disabled. Callbacks and status checks
// are never blocked so in-flight payments still settle. State is persisted
// and every change is audited.
package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/domain"
)

var (
	ErrCollectionsPaused = errors.New("collections are currently paused")
	ErrOperationDisabled = errors.New("operation is currently disabled")
)

const stateKey = "collections_enabled"

// Service holds the pause switch
type Service struct {
	db    *sql.DB
	audit *audit.Service

	mu                 sync.RWMutex
	enabled            bool
	disabledOperations map[string]bool
	pausedAt           *time.Time
	pausedBy           string
	pausedReason       string
}

// New creates a new control service with collections enabled
func New(db *sql.DB, auditSvc *audit.Service) *Service {
	return &Service{
		db:                 db,
		audit:              auditSvc,
		enabled:            true,
		disabledOperations: make(map[string]bool),
	}
}

// Pause stops all new provider operations
func (s *Service) Pause(ctx context.Context, reason, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if err := s.persist(ctx, "false", reason, now, operatorID); err != nil {
		return err
	}
	s.enabled = false
	s.pausedAt = &now
	s.pausedBy = operatorID
	s.pausedReason = reason

	s.audit.Log(ctx, audit.EventCollectionsPaused, domain.SeverityCritical,
		fmt.Sprintf("Collections paused: %s", reason),
		map[string]any{"reason": reason},
		audit.WithOperator(operatorID), audit.WithComponent("control"))

	return nil
}

// Resume re-enables provider operations
func (s *Service) Resume(ctx context.Context, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, "true", "", time.Now().UTC(), operatorID); err != nil {
		return err
	}
	s.enabled = true
	s.pausedAt = nil
	s.pausedBy = ""
	s.pausedReason = ""

	s.audit.Log(ctx, audit.EventCollectionsResumed, domain.SeverityInfo,
		"Collections resumed", nil,
		audit.WithOperator(operatorID), audit.WithComponent("control"))

	return nil
}

func (s *Service) persist(ctx context.Context, value, reason string, at time.Time, operatorID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_state (key, value, reason, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET value = $2, reason = $3, updated_at = $4, updated_by = $5
	`, stateKey, value, reason, at, operatorID)
	if err != nil {
		return fmt.Errorf("failed to persist collection state: %w", err)
	}
	return nil
}

// DisableOperation blocks one provider operation, named by its endpoint
func (s *Service) DisableOperation(ctx context.Context, operation, reason, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disabled_operations (operation, reason, disabled_at, disabled_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (operation) DO UPDATE SET reason = $2, disabled_at = $3, disabled_by = $4
	`, operation, reason, time.Now().UTC(), operatorID)
	if err != nil {
		return fmt.Errorf("failed to persist operation state: %w", err)
	}
	s.disabledOperations[operation] = true

	s.audit.Log(ctx, audit.EventOperationDisabled, domain.SeverityWarning,
		fmt.Sprintf("Operation disabled: %s - %s", operation, reason),
		map[string]any{"operation": operation, "reason": reason},
		audit.WithOperator(operatorID), audit.WithComponent("control"))

	return nil
}

// EnableOperation lifts a block set by DisableOperation
func (s *Service) EnableOperation(ctx context.Context, operation, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM disabled_operations WHERE operation = $1`, operation); err != nil {
		return fmt.Errorf("failed to persist operation state: %w", err)
	}
	delete(s.disabledOperations, operation)

	s.audit.Log(ctx, audit.EventOperationEnabled, domain.SeverityInfo,
		fmt.Sprintf("Operation enabled: %s", operation),
		map[string]any{"operation": operation},
		audit.WithOperator(operatorID), audit.WithComponent("control"))

	return nil
}

// Enabled reports whether collections are running
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// CheckOperation returns an error when operation may not be started now
func (s *Service) CheckOperation(operation string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.enabled {
		return ErrCollectionsPaused
	}
	if s.disabledOperations[operation] {
		return fmt.Errorf("%w: %s", ErrOperationDisabled, operation)
	}
	return nil
}

// Status returns the current switch state and the number of payment
// requests still waiting for payment
func (s *Service) Status(ctx context.Context) (*domain.ControlStatus, error) {
	var pending int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payment_requests WHERE status = $1
	`, domain.PaymentStatusPending).Scan(&pending)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	disabled := make([]string, 0, len(s.disabledOperations))
	for op := range s.disabledOperations {
		disabled = append(disabled, op)
	}
	sort.Strings(disabled)

	return &domain.ControlStatus{
		Enabled:            s.enabled,
		PausedAt:           s.pausedAt,
		PausedBy:           s.pausedBy,
		PausedReason:       s.pausedReason,
		DisabledOperations: disabled,
		PendingRequests:    pending,
	}, nil
}

// LoadState restores persisted state on startup
func (s *Service) LoadState(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		value, updatedBy string
		reason           sql.NullString
		updatedAt        time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, reason, updated_at, updated_by FROM system_state WHERE key = $1
	`, stateKey).Scan(&value, &reason, &updatedAt, &updatedBy)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.enabled = true
	case err != nil:
		return err
	default:
		s.enabled = value != "false"
		if !s.enabled {
			s.pausedAt = &updatedAt
			s.pausedBy = updatedBy
			s.pausedReason = reason.String
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT operation FROM disabled_operations`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.disabledOperations = make(map[string]bool)
	for rows.Next() {
		var op string
		if err := rows.Scan(&op); err != nil {
			return err
		}
		s.disabledOperations[op] = true
	}
	return rows.Err()
}
