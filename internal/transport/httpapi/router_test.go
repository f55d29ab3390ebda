package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/walletsync/internal/infra/vault"
	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/dashboard"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi/handler"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	testAddress = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"
	aliceAddr   = "GALICEALICEALICEALICEALICEALICEALICEALICEALICEALICEALIC"
)

// ledgerStub serves one funded account
type ledgerStub struct{}

func (ledgerStub) AccountExists(ctx context.Context, address string) (bool, error) {
	return address == testAddress, nil
}

func (ledgerStub) GetBalances(ctx context.Context, address string) ([]account.AssetBalance, error) {
	if address != testAddress {
		return nil, account.ErrAccountNotFound
	}
	return []account.AssetBalance{{
		AssetID: account.NativeAssetID,
		Code:    "XLM",
		Balance: big.NewInt(1_000_000_000),
	}}, nil
}

func (ledgerStub) GetPayments(ctx context.Context, address string) ([]account.PaymentRecord, error) {
	if address != testAddress {
		return nil, account.ErrAccountNotFound
	}
	return []account.PaymentRecord{{
		ID:                  "p1",
		Asset:               account.NativeAssetID,
		Amount:              big.NewInt(25_000_000),
		Direction:           account.DirectionReceived,
		CounterpartyAddress: aliceAddr,
		CreatedAt:           time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}}, nil
}

type testServer struct {
	handler http.Handler
	jwt     *middleware.JWTService
	clock   clockwork.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.New("development", io.Discard)
	clock := clockwork.NewFakeClock()
	blobs := vault.NewMemoryBlobStore()
	params := vault.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1}

	registry := dashboard.NewRegistry(func(address string) (*dashboard.Dashboard, error) {
		v := vault.New(address, blobs, "passphrase", params, log)
		return dashboard.New(address, ledgerStub{}, v, v, nil, cache.Options{Clock: clock, Logger: log})
	}, time.Minute, log)

	jwtService := middleware.NewJWTService(testSecret)
	router := httpapi.NewRouter(httpapi.Config{
		Logger:           log,
		AllowedOrigins:   []string{"http://localhost:3000"},
		DashboardHandler: handler.NewDashboardHandler(registry, log),
		ContactHandler:   handler.NewContactHandler(registry, log),
		KycHandler:       handler.NewKycHandler(registry, log),
		HealthHandler:    handler.NewHealthHandler(nil, registry, "test"),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
		JWTMiddleware: middleware.JWTMiddleware(jwtService),
	})

	return &testServer{handler: router, jwt: jwtService, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.doAs(t, testAddress, method, path, body)
}

func (s *testServer) doAs(t *testing.T, address, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if address != "" {
		token, err := s.jwt.GenerateToken(address)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// =============================================================================
// Auth & Health
// =============================================================================

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.doAs(t, "", http.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.doAs(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[handler.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	rec = srv.doAs(t, "", http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.doAs(t, "", http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

// =============================================================================
// Dashboard
// =============================================================================

func TestRouter_GetDashboard(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	resp := decode[handler.DashboardResponse](t, rec)
	assert.Equal(t, testAddress, resp.Account)
	assert.True(t, resp.Refreshed)

	assert.Equal(t, "loaded", resp.Assets.Status)
	require.Len(t, resp.Assets.Data, 1)
	assert.Equal(t, "100", resp.Assets.Data[0].Balance)
	assert.True(t, resp.Assets.Data[0].Native)

	assert.Equal(t, "loaded", resp.Payments.Status)
	require.Len(t, resp.Payments.Data, 1)
	assert.Equal(t, "2.5", resp.Payments.Data[0].Amount)
	assert.Equal(t, "received", resp.Payments.Data[0].Direction)
	assert.Equal(t, "2024-05-01T09:00:00Z", resp.Payments.Data[0].CreatedAt)

	// second poll inside the throttle window is served from state
	rec = srv.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.DashboardResponse](t, rec).Refreshed)
}

func TestRouter_UnfundedAccount(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.doAs(t, aliceAddr, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[handler.DashboardResponse](t, rec)
	assert.Equal(t, "failed", resp.Assets.Status)
	assert.NotEmpty(t, resp.Assets.Error)
	assert.NotNil(t, resp.Assets.Data)
	assert.Empty(t, resp.Assets.Data)
	assert.Equal(t, "failed", resp.Payments.Status)
}

func TestRouter_Refresh(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/dashboard/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/dashboard/refresh", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, decode[handler.DashboardResponse](t, rec).Refreshed)

	rec = srv.do(t, http.MethodPost, "/api/v1/dashboard/refresh?force=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[handler.DashboardResponse](t, rec).Refreshed)

	srv.clock.Advance(3 * time.Second)
	rec = srv.do(t, http.MethodPost, "/api/v1/dashboard/refresh", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// Contacts
// =============================================================================

func TestRouter_DashboardEvents(t *testing.T) {
	srv := newTestServer(t)
	live := httptest.NewServer(srv.handler)
	defer live.Close()

	token, err := srv.jwt.GenerateToken(testAddress)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, live.URL+"/api/v1/dashboard/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := bufio.NewReader(resp.Body)
	line, err := stream.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": subscribed\n", line)

	rec := srv.do(t, http.MethodPost, "/api/v1/contacts", handler.ContactRequest{Name: "Alice", AccountAddress: aliceAddr})
	require.Equal(t, http.StatusCreated, rec.Code)

	var events []handler.ChangeEvent
	for len(events) == 0 || events[len(events)-1].Phase != "loaded" {
		line, err := stream.ReadString('\n')
		require.NoError(t, err)
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var event handler.ChangeEvent
		require.NoError(t, json.Unmarshal([]byte(data), &event))
		events = append(events, event)
	}

	assert.Equal(t, handler.ChangeEvent{Resource: contact.Resource, Phase: "loaded"}, events[len(events)-1])
}

func TestRouter_DashboardEventsRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.doAs(t, "", http.MethodGet, "/api/v1/dashboard/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ContactLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handler.ResourceView[contact.Contact]](t, rec)
	assert.Equal(t, "loaded", list.Status)
	assert.Empty(t, list.Data)

	rec = srv.do(t, http.MethodPost, "/api/v1/contacts", handler.ContactRequest{Name: "Alice", AccountAddress: aliceAddr})
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[contact.Contact](t, rec)
	assert.Equal(t, "Alice", alice.Name)

	// payments pick up the contact name
	rec = srv.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decode[handler.DashboardResponse](t, rec).Payments.Data[0].CounterpartyContactName)

	rec = srv.do(t, http.MethodPost, "/api/v1/contacts", handler.ContactRequest{Name: "Other", AccountAddress: aliceAddr})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/contacts", handler.ContactRequest{AccountAddress: "GBOB"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/v1/contacts/"+alice.ID.String(), handler.ContactRequest{Name: "Alice B", AccountAddress: aliceAddr})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.ID, decode[contact.Contact](t, rec).ID)

	rec = srv.do(t, http.MethodGet, "/api/v1/contacts/"+alice.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice B", decode[contact.Contact](t, rec).Name)

	rec = srv.do(t, http.MethodDelete, "/api/v1/contacts/"+alice.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/v1/contacts/"+alice.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/contacts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_DeleteContacts(t *testing.T) {
	srv := newTestServer(t)

	var ids []string
	for _, c := range []handler.ContactRequest{
		{Name: "Alice", AccountAddress: aliceAddr},
		{Name: "Bob", AccountAddress: "GBOB"},
	} {
		rec := srv.do(t, http.MethodPost, "/api/v1/contacts", c)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[contact.Contact](t, rec).ID.String())
	}

	rec := srv.do(t, http.MethodPost, "/api/v1/contacts/delete", handler.DeleteContactsRequest{IDs: ids})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/contacts", nil)
	assert.Empty(t, decode[handler.ResourceView[contact.Contact]](t, rec).Data)

	rec = srv.do(t, http.MethodPost, "/api/v1/contacts/delete", handler.DeleteContactsRequest{IDs: []string{"bad"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ContactsAreIsolatedPerAccount(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/contacts", handler.ContactRequest{Name: "Alice", AccountAddress: aliceAddr})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.doAs(t, aliceAddr, http.MethodGet, "/api/v1/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[handler.ResourceView[contact.Contact]](t, rec).Data)
}

// =============================================================================
// KYC
// =============================================================================

func TestRouter_KycLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/kyc", map[string]string{"field_id": "email", "value": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/kyc", map[string]string{"field_id": "phone", "value": "555"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/v1/kyc/email", handler.KycValueRequest{Value: "ada@lovelace.dev"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/v1/kyc/missing", handler.KycValueRequest{Value: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/v1/kyc", map[string]any{
		"entries": []map[string]string{{"field_id": "phone", "value": "556"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/kyc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handler.ResourceView[map[string]string]](t, rec)
	require.Len(t, list.Data, 2)
	values := map[string]string{}
	for _, e := range list.Data {
		values[e["field_id"]] = e["value"]
	}
	assert.Equal(t, map[string]string{"email": "ada@lovelace.dev", "phone": "556"}, values)

	rec = srv.do(t, http.MethodDelete, "/api/v1/kyc/phone", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/v1/kyc", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/kyc", nil)
	assert.Empty(t, decode[handler.ResourceView[map[string]string]](t, rec).Data)
}

func TestRouter_KycValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/kyc", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/kyc", bytes.NewReader([]byte("{")))
	token, err := srv.jwt.GenerateToken(testAddress)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
