package collections

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/database"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

// fakeProvider answers provider endpoints with canned payloads and keeps
// the bodies it received
type fakeProvider struct {
	mu        sync.Mutex
	responses map[string]string
	bodies    map[string][]map[string]any
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		responses: map[string]string{},
		bodies:    map[string][]map[string]any{},
	}
}

func (f *fakeProvider) respond(endpoint, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[endpoint] = payload
}

func (f *fakeProvider) calls(endpoint string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[endpoint]
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	data, _ := io.ReadAll(r.Body)

	var body map[string]any
	_ = json.Unmarshal(data, &body)

	f.mu.Lock()
	f.bodies[endpoint] = append(f.bodies[endpoint], body)
	payload, ok := f.responses[endpoint]
	f.mu.Unlock()

	if !ok {
		payload = `{"statusCode":"0","statusMessage":"success"}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(payload))
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Publish(e domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc      *Service
	provider *fakeProvider
	notifier *recordingNotifier
	metrics  *Metrics
	registry *prometheus.Registry
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New("postgres", "host=localhost dbname=pagacollect_test sslmode=disable")
	if err != nil {
		t.Skipf("Skipping test, database not available: %v", err)
	}
	require.NoError(t, db.Migrate())
	require.NoError(t, db.CleanData())

	provider := newFakeProvider()
	server := httptest.NewServer(provider)

	client, err := pagacollect.NewClient(&pagacollect.ClientConfig{
		ClientID: "client",
		Password: "secret",
		APIKey:   "key",
		BaseURL:  server.URL + "/",
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	notifier := &recordingNotifier{}

	svc := New(db.DB, client, audit.New(db.DB),
		WithMetrics(metrics),
		WithNotifier(notifier),
		WithCallbackURL("https://collect.example.com/callbacks/paga"))

	t.Cleanup(func() {
		server.Close()
		db.CleanData()
		db.Close()
	})

	return &testEnv{svc: svc, provider: provider, notifier: notifier, metrics: metrics, registry: registry}
}

func testPaymentRequest(reference, amount string) *pagacollect.PaymentRequest {
	return &pagacollect.PaymentRequest{
		ReferenceNumber: reference,
		Amount:          decimal.RequireFromString(amount),
		Payer:           pagacollect.Payer{Name: "Ada", PhoneNumber: "08012345678"},
		Payee:           pagacollect.Payee{Name: "Shop", AccountNumber: "1234567890"},
		PaymentMethods:  []string{pagacollect.PaymentMethodBankTransfer},
	}
}

func TestNewReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := NewReference()
		assert.Len(t, ref, 32)
		assert.Equal(t, strings.ToUpper(ref), ref)
		assert.False(t, seen[ref], "reference %s repeated", ref)
		seen[ref] = true
	}
}

func TestProviderStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   domain.PaymentStatus
		wantOK bool
	}{
		{"SUCCESSFUL", domain.PaymentStatusPaid, true},
		{"paid", domain.PaymentStatusPaid, true},
		{"EXPIRED", domain.PaymentStatusFailed, true},
		{"PENDING", domain.PaymentStatusPending, false},
		{"", domain.PaymentStatusPending, false},
		{"SOMETHING_NEW", "", false},
	}

	for _, tt := range tests {
		got, ok := providerStatus(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestParseCallback(t *testing.T) {
	p, err := parseCallback([]byte(`{"referenceNumber":"R1","amount":100.5,"statusCode":"0"}`))
	require.NoError(t, err)
	assert.Equal(t, "R1", p.ReferenceNumber())
	assert.Equal(t, json.Number("100.5"), p["amount"])

	_, err = parseCallback([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidCallback)

	_, err = parseCallback([]byte(`null`))
	assert.ErrorIs(t, err, ErrInvalidCallback)
}

func TestCreatePaymentRequest(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		record, resp, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R100", "100"))
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Equal(t, domain.PaymentStatusPending, record.Status)
		assert.Equal(t, "NGN", record.Amount.Currency)
		assert.Equal(t, "https://collect.example.com/callbacks/paga", record.CallbackURL)

		calls := env.provider.calls(pagacollect.EndpointPaymentRequest)
		require.Len(t, calls, 1)
		assert.Equal(t, "NGN", calls[0]["currency"])
		assert.Equal(t, "https://collect.example.com/callbacks/paga", calls[0]["callBackUrl"])

		stored, err := env.svc.GetPaymentRequest(ctx, "R100")
		require.NoError(t, err)
		assert.True(t, stored.Amount.Amount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, []string{pagacollect.PaymentMethodBankTransfer}, stored.PaymentMethods)
	})

	t.Run("GeneratedReference", func(t *testing.T) {
		record, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("", "5"))
		require.NoError(t, err)
		assert.Len(t, record.ReferenceNumber, 32)
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R100", "100"))
		assert.ErrorIs(t, err, ErrDuplicateReference)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R101", "0"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("TooManyDecimals", func(t *testing.T) {
		_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R103", "100.005"))
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = env.svc.GetPaymentRequest(ctx, "R103")
		assert.ErrorIs(t, err, ErrPaymentRequestNotFound)
	})

	t.Run("InvalidCurrency", func(t *testing.T) {
		req := testPaymentRequest("R102", "10")
		req.Currency = "N1"
		_, _, err := env.svc.CreatePaymentRequest(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})

	t.Run("MissingNames", func(t *testing.T) {
		req := testPaymentRequest("R103", "10")
		req.Payee.Name = ""
		_, _, err := env.svc.CreatePaymentRequest(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidPaymentRequest)
	})

	t.Run("ProviderRejects", func(t *testing.T) {
		env.provider.respond(pagacollect.EndpointPaymentRequest, `{"statusCode":"8","statusMessage":"invalid hash"}`)
		defer env.provider.respond(pagacollect.EndpointPaymentRequest, `{"statusCode":"0"}`)

		record, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R104", "10"))
		var statusErr *pagacollect.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, "8", statusErr.StatusCode)

		assert.Equal(t, domain.PaymentStatusRejected, record.Status)
		stored, err := env.svc.GetPaymentRequest(ctx, "R104")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRejected, stored.Status)
		assert.Equal(t, "invalid hash", stored.ProviderMessage)
	})

	t.Run("Metrics", func(t *testing.T) {
		success := testutil.ToFloat64(env.metrics.providerCalls.WithLabelValues(pagacollect.EndpointPaymentRequest, OutcomeSuccess))
		failure := testutil.ToFloat64(env.metrics.providerCalls.WithLabelValues(pagacollect.EndpointPaymentRequest, OutcomeFailure))
		assert.Equal(t, float64(2), success)
		assert.Equal(t, float64(1), failure)
	})

	t.Run("List", func(t *testing.T) {
		rejected, err := env.svc.ListPaymentRequests(ctx, &PaymentFilter{Status: domain.PaymentStatusRejected})
		require.NoError(t, err)
		require.Len(t, rejected, 1)
		assert.Equal(t, "R104", rejected[0].ReferenceNumber)

		all, err := env.svc.ListPaymentRequests(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestRefreshStatus(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R200", "100"))
	require.NoError(t, err)

	env.provider.respond(pagacollect.EndpointStatus, `{"statusCode":"0","referenceNumber":"R200","status":"PENDING"}`)
	record, _, err := env.svc.RefreshStatus(ctx, "R200")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, record.Status)
	assert.Empty(t, env.notifier.types())

	env.provider.respond(pagacollect.EndpointStatus, `{"statusCode":0,"referenceNumber":"R200","status":"SUCCESSFUL"}`)
	record, resp, err := env.svc.RefreshStatus(ctx, "R200")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESSFUL", resp.Status)
	assert.Equal(t, domain.PaymentStatusPaid, record.Status)
	assert.Equal(t, []string{domain.EventStatusChanged}, env.notifier.types())

	_, _, err = env.svc.RefreshStatus(ctx, "UNKNOWN")
	assert.ErrorIs(t, err, ErrPaymentRequestNotFound)
}

func TestRefund(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R300", "100"))
	require.NoError(t, err)

	t.Run("NotRefundableWhilePending", func(t *testing.T) {
		_, err := env.svc.Refund(ctx, "R300", decimal.NewFromInt(10), "")
		assert.ErrorIs(t, err, ErrNotRefundable)
	})

	env.provider.respond(pagacollect.EndpointStatus, `{"statusCode":"0","status":"SUCCESSFUL"}`)
	_, _, err = env.svc.RefreshStatus(ctx, "R300")
	require.NoError(t, err)

	t.Run("ExceedsBalance", func(t *testing.T) {
		_, err := env.svc.Refund(ctx, "R300", decimal.RequireFromString("100.01"), "")
		assert.ErrorIs(t, err, ErrRefundExceedsBalance)
		assert.Empty(t, env.provider.calls(pagacollect.EndpointRefund))
	})

	t.Run("Partial", func(t *testing.T) {
		refund, err := env.svc.Refund(ctx, "R300", decimal.RequireFromString("40.50"), "damaged")
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusCompleted, refund.Status)

		calls := env.provider.calls(pagacollect.EndpointRefund)
		require.Len(t, calls, 1)
		assert.Equal(t, "damaged", calls[0]["reason"])
		assert.Equal(t, "NGN", calls[0]["currency"])

		record, err := env.svc.GetPaymentRequest(ctx, "R300")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartiallyRefunded, record.Status)
		assert.Equal(t, "59.5", record.Refundable().String())
	})

	t.Run("RemainderExceedsBalance", func(t *testing.T) {
		_, err := env.svc.Refund(ctx, "R300", decimal.NewFromInt(60), "")
		assert.ErrorIs(t, err, ErrRefundExceedsBalance)
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		env.provider.respond(pagacollect.EndpointRefund, `{"statusCode":"3","statusMessage":"refund failed"}`)
		refund, err := env.svc.Refund(ctx, "R300", decimal.NewFromInt(1), "")
		var statusErr *pagacollect.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, domain.RefundStatusFailed, refund.Status)

		record, err := env.svc.GetPaymentRequest(ctx, "R300")
		require.NoError(t, err)
		assert.Equal(t, "59.5", record.Refundable().String())
		env.provider.respond(pagacollect.EndpointRefund, `{"statusCode":"0"}`)
	})

	t.Run("Full", func(t *testing.T) {
		_, err := env.svc.Refund(ctx, "R300", decimal.RequireFromString("59.5"), "")
		require.NoError(t, err)

		record, err := env.svc.GetPaymentRequest(ctx, "R300")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, record.Status)
		assert.True(t, record.Refundable().IsZero())

		refunds, err := env.svc.ListRefunds(ctx, "R300")
		require.NoError(t, err)
		assert.Len(t, refunds, 3)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		_, err := env.svc.Refund(ctx, "R300", decimal.NewFromInt(-1), "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := env.svc.Refund(ctx, "MISSING", decimal.NewFromInt(1), "")
		assert.ErrorIs(t, err, ErrPaymentRequestNotFound)
	})
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		in       string
		expected bool
	}{
		{"100", true},
		{"100.5", true},
		{"100.50", true},
		{"100.000", true},
		{"0.01", true},
		{"100.005", false},
		{"0", false},
		{"-1", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, validAmount(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestRefund_Concurrent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R350", "100"))
	require.NoError(t, err)
	env.provider.respond(pagacollect.EndpointStatus, `{"statusCode":"0","status":"SUCCESSFUL"}`)
	_, _, err = env.svc.RefreshStatus(ctx, "R350")
	require.NoError(t, err)

	const workers = 4
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Refund(ctx, "R350", decimal.NewFromInt(60), "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrRefundExceedsBalance):
			rejected++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Len(t, env.provider.calls(pagacollect.EndpointRefund), 1)

	record, err := env.svc.GetPaymentRequest(ctx, "R350")
	require.NoError(t, err)
	assert.Equal(t, "60", record.RefundedAmount.String())
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, record.Status)

	refunds, err := env.svc.ListRefunds(ctx, "R350")
	require.NoError(t, err)
	assert.Len(t, refunds, 1)
}

func TestPersistentAccounts(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	env.provider.respond(pagacollect.EndpointRegisterPersistentPaymentAccount,
		`{"statusCode":"0","referenceNumber":"A1","accountReference":"cust-1","accountNumber":"0515545692"}`)

	t.Run("RegisterValidation", func(t *testing.T) {
		_, err := env.svc.RegisterAccount(ctx, &pagacollect.RegisterPersistentPaymentAccountRequest{FirstName: "Ada"})
		assert.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("Register", func(t *testing.T) {
		account, err := env.svc.RegisterAccount(ctx, &pagacollect.RegisterPersistentPaymentAccountRequest{
			ReferenceNumber:  "A1",
			PhoneNumber:      "08012345678",
			FirstName:        "Ada",
			LastName:         "Obi",
			AccountName:      "Ada Obi",
			AccountReference: "cust-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "0515545692", account.AccountNumber)
		assert.Equal(t, domain.AccountStatusActive, account.Status)
		assert.Equal(t, "https://collect.example.com/callbacks/paga", account.CallbackURL)

		byNumber, err := env.svc.GetAccount(ctx, "0515545692")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byNumber.ID)
	})

	t.Run("Update", func(t *testing.T) {
		phone := "08099999999"
		account, err := env.svc.UpdateAccount(ctx, "cust-1", &pagacollect.UpdatePersistentPaymentAccountRequest{PhoneNumber: &phone})
		require.NoError(t, err)
		assert.Equal(t, phone, account.PhoneNumber)
		assert.Equal(t, "Ada", account.FirstName)

		calls := env.provider.calls(pagacollect.EndpointUpdatePersistentPaymentAccount)
		require.Len(t, calls, 1)
		assert.Equal(t, "cust-1", calls[0]["accountIdentifier"])
		assert.NotContains(t, calls[0], "firstName")
	})

	t.Run("Fetch", func(t *testing.T) {
		env.provider.respond(pagacollect.EndpointGetPersistentPaymentAccount,
			`{"statusCode":"0","accountReference":"cust-1","accountNumber":"0515545692","phoneNumber":"08099999999"}`)
		resp, err := env.svc.FetchAccount(ctx, "cust-1")
		require.NoError(t, err)
		assert.Equal(t, "08099999999", resp.PhoneNumber)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, env.svc.DeleteAccount(ctx, "cust-1", "closed"))

		account, err := env.svc.GetAccount(ctx, "cust-1")
		require.NoError(t, err)
		assert.Equal(t, domain.AccountStatusDeleted, account.Status)
		assert.NotNil(t, account.DeletedAt)

		assert.ErrorIs(t, env.svc.DeleteAccount(ctx, "cust-1", ""), ErrAccountNotFound)
		_, err = env.svc.UpdateAccount(ctx, "cust-1", nil)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := env.svc.GetAccount(ctx, "nobody")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestApplyCallback(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("R400", "250"))
	require.NoError(t, err)

	t.Run("Matched", func(t *testing.T) {
		cb, err := env.svc.ApplyCallback(ctx, []byte(`{"statusCode":"0","statusMessage":"success","referenceNumber":"R400","amount":250,"currency":"NGN","accountNumber":"0515545692"}`))
		require.NoError(t, err)
		assert.Equal(t, "R400", cb.ReferenceNumber)
		require.NotNil(t, cb.Amount)
		assert.Equal(t, "250", cb.Amount.String())

		record, err := env.svc.GetPaymentRequest(ctx, "R400")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, record.Status)
		assert.Equal(t, []string{domain.EventStatusChanged, domain.EventCallbackReceived}, env.notifier.types())
	})

	t.Run("Unmatched", func(t *testing.T) {
		_, err := env.svc.ApplyCallback(ctx, []byte(`{"statusCode":"0","accountNumber":"0515545692","amount":"10"}`))
		require.NoError(t, err)
		assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.callbacks.WithLabelValues(CallbackUnmatched)))
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := env.svc.ApplyCallback(ctx, []byte(`<xml/>`))
		assert.ErrorIs(t, err, ErrInvalidCallback)
		assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.callbacks.WithLabelValues(CallbackInvalid)))
	})
}

func TestListBanksAndHistory(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	env.provider.respond(pagacollect.EndpointBanks,
		`{"statusCode":"0","banks":[{"name":"Access Bank","uuid":"40090E2F-7446-4217-9345-7BBAB7043C4C"}]}`)
	banks, err := env.svc.ListBanks(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, "Access Bank", banks[0].Name)

	env.provider.respond(pagacollect.EndpointHistory,
		`{"statusCode":"0","itemCount":1,"items":[{"referenceNumber":"R1","amount":7048.38,"status":"SUCCESSFUL"}]}`)
	history, err := env.svc.History(ctx, "2021-09-01T00:00:00", "2021-09-30T00:00:00")
	require.NoError(t, err)
	assert.Equal(t, 1, history.ItemCount)

	calls := env.provider.calls(pagacollect.EndpointHistory)
	require.Len(t, calls, 1)
	assert.Equal(t, "2021-09-01T00:00:00", calls[0]["startDateTimeUTC"])

	env.provider.respond(pagacollect.EndpointBanks, `{"statusCode":"5","statusMessage":"unauthorized"}`)
	_, err = env.svc.ListBanks(ctx)
	var statusErr *pagacollect.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

type blockingGate map[string]bool

func (g blockingGate) CheckOperation(operation string) error {
	if g[operation] {
		return errors.New("blocked: " + operation)
	}
	return nil
}

func TestGate(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.svc.gate = blockingGate{pagacollect.EndpointPaymentRequest: true}

	_, _, err := env.svc.CreatePaymentRequest(ctx, testPaymentRequest("GATED", "100"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.Empty(t, env.provider.calls(pagacollect.EndpointPaymentRequest))

	_, err = env.svc.GetPaymentRequest(ctx, "GATED")
	assert.ErrorIs(t, err, ErrPaymentRequestNotFound)

	// validation runs before the gate
	_, _, err = env.svc.CreatePaymentRequest(ctx, testPaymentRequest("GATED", "0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
