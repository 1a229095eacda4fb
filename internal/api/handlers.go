// Package api provides the HTTP API of the collection service
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/auth"
	"github.com/alexbotov/pagacollect/internal/collections"
	"github.com/alexbotov/pagacollect/internal/config"
	"github.com/alexbotov/pagacollect/internal/control"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

// Version is reported by GET /
const Version = "1.0.0"

const maxCallbackBody = 1 << 20

// Pinger reports database availability
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	auth        *auth.Service
	collections *collections.Service
	control     *control.Service
	hub         *Hub
	db          Pinger
	callback    config.CallbackConfig
	logger      *zap.Logger
}

// New creates a new API handler
func New(authSvc *auth.Service, collectionsSvc *collections.Service, controlSvc *control.Service, hub *Hub, db Pinger, callback config.CallbackConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		auth:        authSvc,
		collections: collectionsSvc,
		control:     controlSvc,
		hub:         hub,
		db:          db,
		callback:    callback,
		logger:      logger,
	}
}

// Response helpers

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondCallback answers the provider in its own status format
func respondCallback(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"statusCode":    code,
		"statusMessage": message,
	})
}

// respondServiceError maps service and provider errors to HTTP responses
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *pagacollect.StatusError
	var decodeErr *pagacollect.DecodeError

	switch {
	case errors.Is(err, collections.ErrPaymentRequestNotFound):
		respondError(w, http.StatusNotFound, "PAYMENT_REQUEST_NOT_FOUND", err.Error())
	case errors.Is(err, collections.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", err.Error())
	case errors.Is(err, collections.ErrDuplicateReference):
		respondError(w, http.StatusConflict, "DUPLICATE_REFERENCE", err.Error())
	case errors.Is(err, collections.ErrInvalidAmount),
		errors.Is(err, collections.ErrInvalidCurrency),
		errors.Is(err, collections.ErrInvalidPaymentRequest),
		errors.Is(err, collections.ErrInvalidAccount):
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, collections.ErrNotRefundable):
		respondError(w, http.StatusUnprocessableEntity, "NOT_REFUNDABLE", err.Error())
	case errors.Is(err, collections.ErrRefundExceedsBalance):
		respondError(w, http.StatusUnprocessableEntity, "REFUND_EXCEEDS_BALANCE", err.Error())
	case errors.Is(err, control.ErrCollectionsPaused):
		respondError(w, http.StatusServiceUnavailable, "COLLECTIONS_PAUSED", err.Error())
	case errors.Is(err, control.ErrOperationDisabled):
		respondError(w, http.StatusServiceUnavailable, "OPERATION_DISABLED", err.Error())
	case errors.As(err, &statusErr):
		respondError(w, http.StatusBadGateway, "PROVIDER_REJECTED", statusErr.Error())
	case errors.As(err, &decodeErr):
		respondError(w, http.StatusBadGateway, "PROVIDER_INVALID_RESPONSE", "Provider returned an unreadable response")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "PROVIDER_TIMEOUT", "Provider did not answer in time")
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			dbStatus = "unavailable"
		}
	}

	status, code := "healthy", http.StatusOK
	if dbStatus != "ok" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":            status,
		"database":          dbStatus,
		"websocket_clients": h.hub.Clients(),
	}
	if h.control != nil {
		body["collections_enabled"] = h.control.Enabled()
	}
	respondJSON(w, code, body)
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        "pagacollect",
		"version":     Version,
		"description": "Paga Collect payment collection service",
	})
}

// === Authentication ===

// IssueToken handles POST /api/v1/auth/token
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OperatorID string `json:"operator_id"`
		Secret     string `json:"secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := h.auth.Login(r.Context(), req.OperatorID, req.Secret, getClientIP(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid operator id or secret")
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, token)
}

// === Banks & History ===

// ListBanks handles GET /api/v1/banks
func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.collections.ListBanks(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"banks": banks})
}

// History handles POST /api/v1/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDateTimeUTC string `json:"start_date_time_utc"`
		EndDateTimeUTC   string `json:"end_date_time_utc"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StartDateTimeUTC == "" || req.EndDateTimeUTC == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "start_date_time_utc and end_date_time_utc are required")
		return
	}

	history, err := h.collections.History(r.Context(), req.StartDateTimeUTC, req.EndDateTimeUTC)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// === Payment requests ===

type partyBody struct {
	Name                          string `json:"name"`
	Email                         string `json:"email"`
	PhoneNumber                   string `json:"phone_number"`
	BankID                        string `json:"bank_id"`
	AccountNumber                 string `json:"account_number"`
	BankAccountNumber             string `json:"bank_account_number"`
	FinancialIdentificationNumber string `json:"financial_identification_number"`
}

type paymentRequestBody struct {
	ReferenceNumber          string           `json:"reference_number"`
	Amount                   decimal.Decimal  `json:"amount"`
	Currency                 string           `json:"currency"`
	Payer                    partyBody        `json:"payer"`
	Payee                    partyBody        `json:"payee"`
	ExpiryDateTimeUTC        *string          `json:"expiry_date_time_utc"`
	IsSuppressMessages       *bool            `json:"is_suppress_messages"`
	PayerCollectionFeeShare  *decimal.Decimal `json:"payer_collection_fee_share"`
	PayeeCollectionFeeShare  *decimal.Decimal `json:"payee_collection_fee_share"`
	IsAllowPartialPayments   *bool            `json:"is_allow_partial_payments"`
	CallbackURL              string           `json:"callback_url"`
	PaymentMethods           []string         `json:"payment_methods"`
	DisplayBankDetailToPayer *bool            `json:"display_bank_detail_to_payer"`
}

func (b *paymentRequestBody) request() *pagacollect.PaymentRequest {
	return &pagacollect.PaymentRequest{
		ReferenceNumber: b.ReferenceNumber,
		Amount:          b.Amount,
		Currency:        b.Currency,
		Payer: pagacollect.Payer{
			Name:        b.Payer.Name,
			Email:       b.Payer.Email,
			PhoneNumber: b.Payer.PhoneNumber,
			BankID:      b.Payer.BankID,
		},
		Payee: pagacollect.Payee{
			Name:                          b.Payee.Name,
			AccountNumber:                 b.Payee.AccountNumber,
			PhoneNumber:                   b.Payee.PhoneNumber,
			BankID:                        b.Payee.BankID,
			BankAccountNumber:             b.Payee.BankAccountNumber,
			FinancialIdentificationNumber: b.Payee.FinancialIdentificationNumber,
		},
		ExpiryDateTimeUTC:        b.ExpiryDateTimeUTC,
		IsSuppressMessages:       b.IsSuppressMessages,
		PayerCollectionFeeShare:  b.PayerCollectionFeeShare,
		PayeeCollectionFeeShare:  b.PayeeCollectionFeeShare,
		IsAllowPartialPayments:   b.IsAllowPartialPayments,
		CallBackURL:              b.CallbackURL,
		PaymentMethods:           b.PaymentMethods,
		DisplayBankDetailToPayer: b.DisplayBankDetailToPayer,
	}
}

// CreatePaymentRequest handles POST /api/v1/payment-requests
func (h *Handler) CreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	var body paymentRequestBody
	if !decodeBody(w, r, &body) {
		return
	}

	record, resp, err := h.collections.CreatePaymentRequest(r.Context(), body.request())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"payment_request": record,
		"provider":        resp,
	})
}

// ListPaymentRequests handles GET /api/v1/payment-requests
func (h *Handler) ListPaymentRequests(w http.ResponseWriter, r *http.Request) {
	filter := &collections.PaymentFilter{
		Status: domain.PaymentStatus(r.URL.Query().Get("status")),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	records, err := h.collections.ListPaymentRequests(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []*domain.PaymentRequest{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"payment_requests": records})
}

// GetPaymentRequest handles GET /api/v1/payment-requests/{reference}
func (h *Handler) GetPaymentRequest(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	record, err := h.collections.GetPaymentRequest(r.Context(), reference)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	refunds, err := h.collections.ListRefunds(r.Context(), reference)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if refunds == nil {
		refunds = []*domain.Refund{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"payment_request": record,
		"refunds":         refunds,
	})
}

// RefreshStatus handles POST /api/v1/payment-requests/{reference}/status
func (h *Handler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	record, resp, err := h.collections.RefreshStatus(r.Context(), mux.Vars(r)["reference"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"payment_request": record,
		"provider":        resp,
	})
}

// Refund handles POST /api/v1/payment-requests/{reference}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Reason string          `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	refund, err := h.collections.Refund(r.Context(), mux.Vars(r)["reference"], req.Amount, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, refund)
}

// === Persistent accounts ===

type accountBody struct {
	ReferenceNumber               string           `json:"reference_number"`
	PhoneNumber                   string           `json:"phone_number"`
	Email                         string           `json:"email"`
	FirstName                     string           `json:"first_name"`
	LastName                      string           `json:"last_name"`
	AccountName                   string           `json:"account_name"`
	FinancialIdentificationNumber string           `json:"financial_identification_number"`
	AccountReference              string           `json:"account_reference"`
	CreditBankID                  *string          `json:"credit_bank_id"`
	CreditBankAccountNumber       *string          `json:"credit_bank_account_number"`
	CallbackURL                   *string          `json:"callback_url"`
	FundingTransactionLimit       *decimal.Decimal `json:"funding_transaction_limit"`
}

// RegisterAccount handles POST /api/v1/accounts
func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var body accountBody
	if !decodeBody(w, r, &body) {
		return
	}

	account, err := h.collections.RegisterAccount(r.Context(), &pagacollect.RegisterPersistentPaymentAccountRequest{
		ReferenceNumber:               body.ReferenceNumber,
		PhoneNumber:                   body.PhoneNumber,
		Email:                         body.Email,
		FirstName:                     body.FirstName,
		LastName:                      body.LastName,
		AccountName:                   body.AccountName,
		FinancialIdentificationNumber: body.FinancialIdentificationNumber,
		AccountReference:              body.AccountReference,
		CreditBankID:                  body.CreditBankID,
		CreditBankAccountNumber:       body.CreditBankAccountNumber,
		CallbackURL:                   body.CallbackURL,
		FundingTransactionLimit:       body.FundingTransactionLimit,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// GetAccount handles GET /api/v1/accounts/{identifier}. With provider=true
// the provider's current view is included.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]

	account, err := h.collections.GetAccount(r.Context(), identifier)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	data := map[string]any{"account": account}
	if r.URL.Query().Get("provider") == "true" {
		remote, err := h.collections.FetchAccount(r.Context(), account.AccountIdentifier)
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		data["provider"] = remote
	}
	respondJSON(w, http.StatusOK, data)
}

// UpdateAccount handles PUT /api/v1/accounts/{identifier}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhoneNumber                   *string `json:"phone_number"`
		FirstName                     *string `json:"first_name"`
		LastName                      *string `json:"last_name"`
		AccountName                   *string `json:"account_name"`
		FinancialIdentificationNumber *string `json:"financial_identification_number"`
		CallbackURL                   *string `json:"callback_url"`
		CreditBankID                  *string `json:"credit_bank_id"`
		CreditBankAccountNumber       *string `json:"credit_bank_account_number"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	account, err := h.collections.UpdateAccount(r.Context(), mux.Vars(r)["identifier"], &pagacollect.UpdatePersistentPaymentAccountRequest{
		PhoneNumber:                   body.PhoneNumber,
		FirstName:                     body.FirstName,
		LastName:                      body.LastName,
		AccountName:                   body.AccountName,
		FinancialIdentificationNumber: body.FinancialIdentificationNumber,
		CallbackURL:                   body.CallbackURL,
		CreditBankID:                  body.CreditBankID,
		CreditBankAccountNumber:       body.CreditBankAccountNumber,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/v1/accounts/{identifier}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.DeleteAccount(r.Context(), mux.Vars(r)["identifier"], r.URL.Query().Get("reason")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Account deleted",
	})
}

// === Provider callbacks ===

// PagaCallback handles POST /callbacks/paga
func (h *Handler) PagaCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		respondCallback(w, http.StatusRequestEntityTooLarge, "1", "payload too large")
		return
	}

	if _, err := h.collections.ApplyCallback(r.Context(), body); err != nil {
		if errors.Is(err, collections.ErrInvalidCallback) {
			respondCallback(w, http.StatusBadRequest, "1", "invalid payload")
			return
		}
		h.logger.Error("failed to apply callback",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		respondCallback(w, http.StatusInternalServerError, "1", "internal error")
		return
	}

	respondCallback(w, http.StatusOK, "0", "success")
}

// === Collection control ===

// ControlStatus handles GET /api/v1/control
func (h *Handler) ControlStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.control.Status(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// PauseCollections handles POST /api/v1/control/pause
func (h *Handler) PauseCollections(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "reason is required")
		return
	}

	if err := h.control.Pause(r.Context(), req.Reason, claimsFromContext(r.Context()).OperatorID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.ControlStatus(w, r)
}

// ResumeCollections handles POST /api/v1/control/resume
func (h *Handler) ResumeCollections(w http.ResponseWriter, r *http.Request) {
	if err := h.control.Resume(r.Context(), claimsFromContext(r.Context()).OperatorID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.ControlStatus(w, r)
}

// DisableOperation handles POST /api/v1/control/operations/{operation}/disable
func (h *Handler) DisableOperation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	operation := mux.Vars(r)["operation"]
	if !controllableOperations[operation] {
		respondError(w, http.StatusBadRequest, "INVALID_OPERATION", "Unknown operation: "+operation)
		return
	}

	if err := h.control.DisableOperation(r.Context(), operation, req.Reason, claimsFromContext(r.Context()).OperatorID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.ControlStatus(w, r)
}

// EnableOperation handles POST /api/v1/control/operations/{operation}/enable
func (h *Handler) EnableOperation(w http.ResponseWriter, r *http.Request) {
	operation := mux.Vars(r)["operation"]
	if !controllableOperations[operation] {
		respondError(w, http.StatusBadRequest, "INVALID_OPERATION", "Unknown operation: "+operation)
		return
	}

	if err := h.control.EnableOperation(r.Context(), operation, claimsFromContext(r.Context()).OperatorID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.ControlStatus(w, r)
}

// controllableOperations are the provider endpoints that change state
var controllableOperations = map[string]bool{
	pagacollect.EndpointPaymentRequest:                   true,
	pagacollect.EndpointRefund:                           true,
	pagacollect.EndpointRegisterPersistentPaymentAccount: true,
	pagacollect.EndpointUpdatePersistentPaymentAccount:   true,
	pagacollect.EndpointDeletePersistentPaymentAccount:   true,
}
