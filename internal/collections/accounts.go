package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

const accountColumns = `id, reference_number, account_identifier, account_number, account_name, first_name, last_name,
	phone_number, email, financial_identification_number, callback_url, status, created_at, updated_at, deleted_at`

// RegisterAccount registers a persistent payment account with the provider
// and records it. AccountReference identifies the account in later calls.
func (s *Service) RegisterAccount(ctx context.Context, req *pagacollect.RegisterPersistentPaymentAccountRequest) (*domain.PersistentAccount, error) {
	if req == nil || req.AccountReference == "" || req.PhoneNumber == "" || req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("%w: account reference, phone number, first and last name are required", ErrInvalidAccount)
	}
	if err := s.allow(pagacollect.EndpointRegisterPersistentPaymentAccount); err != nil {
		return nil, err
	}

	r := *req
	if r.ReferenceNumber == "" {
		r.ReferenceNumber = NewReference()
	}
	if r.CallbackURL == nil && s.callbackURL != "" {
		r.CallbackURL = &s.callbackURL
	}

	result, err := s.call(ctx, pagacollect.EndpointRegisterPersistentPaymentAccount, r.ReferenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.RegisterPersistentPaymentAccount(ctx, &r)
	})
	if err != nil {
		return nil, err
	}

	var resp pagacollect.PersistentAccountResponse
	if err := result.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.PersistentAccount{
		ID:                            uuid.New().String(),
		ReferenceNumber:               r.ReferenceNumber,
		AccountIdentifier:             r.AccountReference,
		AccountNumber:                 resp.AccountNumber,
		AccountName:                   r.AccountName,
		FirstName:                     r.FirstName,
		LastName:                      r.LastName,
		PhoneNumber:                   r.PhoneNumber,
		Email:                         r.Email,
		FinancialIdentificationNumber: r.FinancialIdentificationNumber,
		Status:                        domain.AccountStatusActive,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
	if resp.AccountName != "" {
		account.AccountName = resp.AccountName
	}
	if r.CallbackURL != nil {
		account.CallbackURL = *r.CallbackURL
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO persistent_accounts (id, reference_number, account_identifier, account_number, account_name,
			first_name, last_name, phone_number, email, financial_identification_number, callback_url, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account_identifier) DO UPDATE SET
			reference_number = EXCLUDED.reference_number, account_number = EXCLUDED.account_number,
			account_name = EXCLUDED.account_name, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			phone_number = EXCLUDED.phone_number, email = EXCLUDED.email,
			financial_identification_number = EXCLUDED.financial_identification_number,
			callback_url = EXCLUDED.callback_url, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`, account.ID, account.ReferenceNumber, account.AccountIdentifier, nullString(account.AccountNumber),
		nullString(account.AccountName), account.FirstName, account.LastName, account.PhoneNumber,
		nullString(account.Email), nullString(account.FinancialIdentificationNumber),
		nullString(account.CallbackURL), account.Status, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store persistent account: %w", err)
	}

	s.record(ctx, audit.EventAccountRegistered, domain.SeverityInfo,
		fmt.Sprintf("Persistent account %s registered", account.AccountIdentifier),
		map[string]any{"account_number": account.AccountNumber},
		audit.WithReference(account.ReferenceNumber))

	return s.GetAccount(ctx, account.AccountIdentifier)
}

// UpdateAccount sends the non-nil fields of upd to the provider and applies
// them to the local record. AccountIdentifier and ReferenceNumber of upd are
// filled in when empty.
func (s *Service) UpdateAccount(ctx context.Context, identifier string, upd *pagacollect.UpdatePersistentPaymentAccountRequest) (*domain.PersistentAccount, error) {
	account, err := s.GetAccount(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if account.Status != domain.AccountStatusActive {
		return nil, ErrAccountNotFound
	}
	if err := s.allow(pagacollect.EndpointUpdatePersistentPaymentAccount); err != nil {
		return nil, err
	}

	r := pagacollect.UpdatePersistentPaymentAccountRequest{}
	if upd != nil {
		r = *upd
	}
	if r.ReferenceNumber == "" {
		r.ReferenceNumber = NewReference()
	}
	if r.AccountIdentifier == "" {
		r.AccountIdentifier = account.AccountIdentifier
	}

	if _, err := s.call(ctx, pagacollect.EndpointUpdatePersistentPaymentAccount, r.ReferenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.UpdatePersistentPaymentAccount(ctx, &r)
	}); err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&account.PhoneNumber, r.PhoneNumber)
	apply(&account.FirstName, r.FirstName)
	apply(&account.LastName, r.LastName)
	apply(&account.AccountName, r.AccountName)
	apply(&account.FinancialIdentificationNumber, r.FinancialIdentificationNumber)
	apply(&account.CallbackURL, r.CallbackURL)
	account.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE persistent_accounts SET phone_number = $1, first_name = $2, last_name = $3, account_name = $4,
			financial_identification_number = $5, callback_url = $6, updated_at = $7
		WHERE id = $8
	`, account.PhoneNumber, account.FirstName, account.LastName, nullString(account.AccountName),
		nullString(account.FinancialIdentificationNumber), nullString(account.CallbackURL), account.UpdatedAt, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update persistent account: %w", err)
	}

	s.record(ctx, audit.EventAccountUpdated, domain.SeverityInfo,
		fmt.Sprintf("Persistent account %s updated", account.AccountIdentifier), nil,
		audit.WithReference(r.ReferenceNumber))

	return account, nil
}

// DeleteAccount deletes a persistent account at the provider and marks the
// local record deleted
func (s *Service) DeleteAccount(ctx context.Context, identifier, reason string) error {
	account, err := s.GetAccount(ctx, identifier)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountStatusDeleted {
		return ErrAccountNotFound
	}
	if err := s.allow(pagacollect.EndpointDeletePersistentPaymentAccount); err != nil {
		return err
	}

	req := &pagacollect.DeletePersistentPaymentAccountRequest{
		ReferenceNumber:   NewReference(),
		AccountIdentifier: account.AccountIdentifier,
	}
	if reason != "" {
		req.Reason = &reason
	}

	if _, err := s.call(ctx, pagacollect.EndpointDeletePersistentPaymentAccount, req.ReferenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.DeletePersistentPaymentAccount(ctx, req)
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE persistent_accounts SET status = $1, deleted_at = $2, updated_at = $2 WHERE id = $3
	`, domain.AccountStatusDeleted, now, account.ID)
	if err != nil {
		return fmt.Errorf("failed to delete persistent account: %w", err)
	}

	s.record(ctx, audit.EventAccountDeleted, domain.SeverityInfo,
		fmt.Sprintf("Persistent account %s deleted", account.AccountIdentifier),
		map[string]any{"reason": reason},
		audit.WithReference(req.ReferenceNumber))
	return nil
}

// GetAccount returns the local record for an account reference or account number
func (s *Service) GetAccount(ctx context.Context, identifier string) (*domain.PersistentAccount, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM persistent_accounts
		WHERE account_identifier = $1 OR account_number = $1
		ORDER BY created_at DESC LIMIT 1`, identifier)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get persistent account: %w", err)
	}
	return account, nil
}

// FetchAccount asks the provider for the current view of a persistent account
func (s *Service) FetchAccount(ctx context.Context, identifier string) (*pagacollect.PersistentAccountResponse, error) {
	req := &pagacollect.GetPersistentPaymentAccountRequest{
		ReferenceNumber:   NewReference(),
		AccountIdentifier: identifier,
	}
	result, err := s.call(ctx, pagacollect.EndpointGetPersistentPaymentAccount, req.ReferenceNumber, func(ctx context.Context) (*pagacollect.Result, error) {
		return s.client.GetPersistentPaymentAccount(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	var resp pagacollect.PersistentAccountResponse
	if err := result.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return &resp, nil
}

func scanAccount(row scanner) (*domain.PersistentAccount, error) {
	var a domain.PersistentAccount
	var number, name, email, fin, callback sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(&a.ID, &a.ReferenceNumber, &a.AccountIdentifier, &number, &name, &a.FirstName, &a.LastName,
		&a.PhoneNumber, &email, &fin, &callback, &a.Status, &a.CreatedAt, &a.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	a.AccountNumber = number.String
	a.AccountName = name.String
	a.Email = email.String
	a.FinancialIdentificationNumber = fin.String
	a.CallbackURL = callback.String
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Time
	}
	return &a, nil
}
