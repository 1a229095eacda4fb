package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/auth"
	"github.com/alexbotov/pagacollect/internal/collections"
	"github.com/alexbotov/pagacollect/internal/config"
	"github.com/alexbotov/pagacollect/internal/control"
	"github.com/alexbotov/pagacollect/internal/database"
	"github.com/alexbotov/pagacollect/internal/domain"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

const (
	testOperator = "operator"
	testSecret   = "operator-secret"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func testAuth(t *testing.T) *auth.Service {
	t.Helper()
	hash, err := auth.HashSecret(testSecret)
	require.NoError(t, err)
	return auth.New(&config.AuthConfig{
		JWTSecret:          "test-jwt-secret",
		TokenExpiry:        time.Hour,
		OperatorID:         testOperator,
		OperatorSecretHash: hash,
	}, nil)
}

var testCallback = config.CallbackConfig{Username: "paga", Password: "callback-secret"}

func newTestServer(t *testing.T, svc *collections.Service, db Pinger, cfg RouterConfig) (*httptest.Server, *Handler) {
	t.Helper()
	h := New(testAuth(t), svc, nil, NewHub(nil), db, testCallback, nil)
	server := httptest.NewServer(h.SetupRouter(cfg))
	t.Cleanup(server.Close)
	return server, h
}

func operatorToken(t *testing.T, h *Handler) string {
	t.Helper()
	token, err := h.auth.IssueToken(testOperator)
	require.NoError(t, err)
	return token.Token
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var out APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServerInfoAndHealth(t *testing.T) {
	server, _ := newTestServer(t, nil, fakePinger{}, RouterConfig{})

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	body := decodeResponse(t, resp)
	assert.True(t, body.Success)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeResponse(t, resp)
	assert.Equal(t, "healthy", body.Data.(map[string]any)["status"])
}

func TestHealthDegraded(t *testing.T) {
	server, _ := newTestServer(t, nil, fakePinger{err: errors.New("down")}, RouterConfig{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeResponse(t, resp)
	assert.Equal(t, "degraded", body.Data.(map[string]any)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	_, err := http.Get(server.URL + "/")
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "pagacollect_http_duration_seconds")
}

func TestIssueToken(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	t.Run("Valid", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/v1/auth/token", "application/json",
			strings.NewReader(`{"operator_id":"operator","secret":"operator-secret"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeResponse(t, resp)
		assert.NotEmpty(t, body.Data.(map[string]any)["token"])
	})

	t.Run("Invalid", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/v1/auth/token", "application/json",
			strings.NewReader(`{"operator_id":"operator","secret":"nope"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeResponse(t, resp)
		assert.Equal(t, "INVALID_CREDENTIALS", body.Error.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/v1/auth/token", "application/json", strings.NewReader(`{`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthMiddleware(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing", "", "NO_TOKEN"},
		{"bad format", "Token abc", "INVALID_TOKEN_FORMAT"},
		{"bad token", "Bearer abc", "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/banks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.code, decodeResponse(t, resp).Error.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 2})

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := http.Post(server.URL+"/api/v1/auth/token", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// public routes outside /api/v1 are not limited
	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{AllowedOrigins: []string{"https://dashboard.example.com"}})

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/payment-requests", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://dashboard.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPreserved(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(HeaderRequestID))
}

func TestNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	resp, err := http.Get(server.URL + "/nowhere")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeResponse(t, resp).Error.Code)
}

func TestCallbackAuth(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	tests := []struct {
		name string
		user string
		pass string
	}{
		{"no credentials", "", ""},
		{"wrong password", "paga", "wrong"},
		{"wrong user", "other", "callback-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, server.URL+"/callbacks/paga", strings.NewReader(`{}`))
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "1", body["statusCode"])
		})
	}
}

func dialEvents(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEventStream(t *testing.T) {
	server, h := newTestServer(t, nil, nil, RouterConfig{})
	conn := dialEvents(t, server, operatorToken(t, h))

	assert.Equal(t, "connected", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "subscribe",
		"payload": map[string]any{"references": []string{"R1"}},
	}))
	assert.Equal(t, "subscribed", readMessage(t, conn).Type)
	require.Equal(t, 1, h.hub.Clients())

	h.hub.Publish(domain.Event{Type: domain.EventStatusChanged, ReferenceNumber: "R2"})
	h.hub.Publish(domain.Event{Type: domain.EventStatusChanged, ReferenceNumber: "R1", Status: domain.PaymentStatusPaid})

	msg := readMessage(t, conn)
	assert.Equal(t, domain.EventStatusChanged, msg.Type)
	var event domain.Event
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, "R1", event.ReferenceNumber)
	assert.Equal(t, domain.PaymentStatusPaid, event.Status)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "dance"}))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}

func TestEventStreamRequiresToken(t *testing.T) {
	server, _ := newTestServer(t, nil, nil, RouterConfig{})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestCollectionFlow drives the API end to end against a fake provider
func TestCollectionFlow(t *testing.T) {
	db, err := database.New("postgres", "host=localhost dbname=pagacollect_test sslmode=disable")
	if err != nil {
		t.Skipf("Skipping test, database not available: %v", err)
	}
	require.NoError(t, db.Migrate())
	require.NoError(t, db.CleanData())
	t.Cleanup(func() {
		db.CleanData()
		db.Close()
	})

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/paymentRequest":
			w.Write([]byte(`{"statusCode":"0","statusMessage":"success","referenceNumber":"F1","paymentMethods":[]}`))
		case "/refund":
			w.Write([]byte(`{"statusCode":"0","statusMessage":"success","referenceNumber":"F1","refundAmount":20}`))
		default:
			w.Write([]byte(`{"statusCode":"0"}`))
		}
	}))
	t.Cleanup(provider.Close)

	client, err := pagacollect.NewClient(&pagacollect.ClientConfig{
		ClientID: "c", Password: "p", APIKey: "k", BaseURL: provider.URL + "/",
	})
	require.NoError(t, err)

	hub := NewHub(nil)
	auditSvc := audit.New(db.DB)
	controlSvc := control.New(db.DB, auditSvc)
	svc := collections.New(db.DB, client, auditSvc, collections.WithNotifier(hub), collections.WithGate(controlSvc))
	h := New(testAuth(t), svc, controlSvc, hub, db, testCallback, nil)
	server := httptest.NewServer(h.SetupRouter(RouterConfig{}))
	t.Cleanup(server.Close)
	token := operatorToken(t, h)

	call := func(method, path, body string) *http.Response {
		req, _ := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	conn := dialEvents(t, server, token)
	assert.Equal(t, "connected", readMessage(t, conn).Type)

	resp := call(http.MethodPost, "/api/v1/payment-requests", `{
		"reference_number": "F1",
		"amount": "100",
		"payer": {"name": "Ada", "phone_number": "08012345678"},
		"payee": {"name": "Shop"},
		"payment_methods": ["BANK_TRANSFER"]
	}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = call(http.MethodPost, "/api/v1/payment-requests/F1/refund", `{"amount":"10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "NOT_REFUNDABLE", decodeResponse(t, resp).Error.Code)

	cbReq, _ := http.NewRequest(http.MethodPost, server.URL+"/callbacks/paga",
		strings.NewReader(`{"statusCode":"0","statusMessage":"success","referenceNumber":"F1","amount":100}`))
	cbReq.SetBasicAuth(testCallback.Username, testCallback.Password)
	cbResp, err := http.DefaultClient.Do(cbReq)
	require.NoError(t, err)
	var ack map[string]string
	require.NoError(t, json.NewDecoder(cbResp.Body).Decode(&ack))
	cbResp.Body.Close()
	assert.Equal(t, map[string]string{"statusCode": "0", "statusMessage": "success"}, ack)

	assert.Equal(t, domain.EventStatusChanged, readMessage(t, conn).Type)
	assert.Equal(t, domain.EventCallbackReceived, readMessage(t, conn).Type)

	resp = call(http.MethodPost, "/api/v1/payment-requests/F1/refund", `{"amount":"120"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "REFUND_EXCEEDS_BALANCE", decodeResponse(t, resp).Error.Code)

	resp = call(http.MethodPost, "/api/v1/payment-requests/F1/refund", `{"amount":"20","reason":"partial"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = call(http.MethodGet, "/api/v1/payment-requests/F1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeResponse(t, resp)
	data := body.Data.(map[string]any)
	record := data["payment_request"].(map[string]any)
	assert.Equal(t, string(domain.PaymentStatusPartiallyRefunded), record["status"])
	assert.Len(t, data["refunds"], 1)

	resp = call(http.MethodGet, "/api/v1/payment-requests/NOPE", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = call(http.MethodPost, "/api/v1/control/operations/refund/disable", `{"reason":"reconciliation"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = call(http.MethodPost, "/api/v1/payment-requests/F1/refund", `{"amount":"5"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "OPERATION_DISABLED", decodeResponse(t, resp).Error.Code)

	resp = call(http.MethodPost, "/api/v1/control/operations/nothing/disable", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = call(http.MethodPost, "/api/v1/control/pause", `{"reason":"incident"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeResponse(t, resp).Data.(map[string]any)
	assert.Equal(t, false, status["enabled"])
	assert.Equal(t, []any{"refund"}, status["disabled_operations"])

	resp = call(http.MethodPost, "/api/v1/payment-requests", `{
		"amount": "50",
		"payer": {"name": "Ada"},
		"payee": {"name": "Shop"}
	}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "COLLECTIONS_PAUSED", decodeResponse(t, resp).Error.Code)

	resp = call(http.MethodPost, "/api/v1/control/resume", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	bad, _ := http.NewRequest(http.MethodPost, server.URL+"/callbacks/paga", strings.NewReader(`garbage`))
	bad.SetBasicAuth(testCallback.Username, testCallback.Password)
	badResp, err := http.DefaultClient.Do(bad)
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}
