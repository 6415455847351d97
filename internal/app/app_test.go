package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zapcooking/backend/internal/config"
	"github.com/zapcooking/backend/internal/kv"
	"github.com/zapcooking/backend/internal/kv/memory"
	"github.com/zapcooking/backend/internal/lnurl"
	"github.com/zapcooking/backend/internal/membership"
	"github.com/zapcooking/backend/internal/models"
	"github.com/zapcooking/backend/internal/nip05"
	"github.com/zapcooking/backend/internal/recipegen"
	"github.com/zapcooking/backend/internal/shortlink"
)

const (
	testNaddr  = "naddr1qqxnzd3cxqmrzv3exgmr2wfeqgsxu35yyt0mwjjh8pcz4zprhxegz69t4wr9t74vk6zne58wzh0waycrqsqqqa28pjfdhz"
	testPubkey = "82341f882b6eabcd2ba7f1ef90aad961cf074af15b9ef44a09f9d2a8fbfbe6a2"
	rootPubkey = "d307643547703537dfdef811c3dea96f1f9e84c8249e200353425924a9908cf8"
)

var testConfig = &config.ServerConfig{
	RunAddr:       ":8080",
	BaseURL:       "https://zap.cooking",
	Secret:        "b4952c3809196592c026529df00774e46bfb5be0",
	TrustedSubnet: "10.0.0.0/8",
	LnurlUpstream: "http://127.0.0.1:1",
}

type fakeLightning struct{}

func (f *fakeLightning) CreateReceiveRequest(ctx context.Context, amountSats int64, description string) (*membership.ReceiveRequest, error) {
	return &membership.ReceiveRequest{ReceiveRequestID: "rr-1", Invoice: "lnbc10u1fake", PaymentHash: "deadbeef"}, nil
}

func (f *fakeLightning) IsPaid(ctx context.Context, receiveRequestID string) (bool, error) {
	return true, nil
}

type fakeCheckout struct{}

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, amountCents int64, description string, successURL string, cancelURL string) (*membership.CheckoutSession, error) {
	return &membership.CheckoutSession{ID: "cs-1", URL: "https://checkout.stripe.com/cs-1"}, nil
}

func (f *fakeCheckout) GetCheckoutSession(ctx context.Context, sessionID string) (*membership.CheckoutSession, error) {
	return &membership.CheckoutSession{ID: sessionID, PaymentStatus: "paid"}, nil
}

type fakeMembers struct {
	active bool
}

func (f *fakeMembers) PutMember(ctx context.Context, member models.Member) error {
	return nil
}

func (f *fakeMembers) GetMember(ctx context.Context, pubkey string) (*models.MembershipState, error) {
	return &models.MembershipState{Pubkey: pubkey, Active: f.active}, nil
}

func newTestApp(t *testing.T, store kv.Store, active bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()

	shortlinks := shortlink.NewService(testConfig, store, logger)
	identities := nip05.NewService(store, rootPubkey)
	members := membership.NewService(true, testConfig.BaseURL, store,
		&fakeLightning{}, &fakeCheckout{}, &fakeMembers{active: active}, identities, logger)
	proxy := lnurl.NewProxy(testConfig.LnurlUpstream, logger)
	recipes := recipegen.NewService(false, "", "", logger)

	testApp := NewApp(testConfig, store, shortlinks, members, identities, proxy, recipes, logger)
	r, err := testApp.SetupRouter()
	require.NoError(t, err)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestShorten_Lifecycle(t *testing.T) {
	store := memory.NewMemoryStorage()
	r := newTestApp(t, store, false)

	w := postJSON(t, r, "/api/shorten", models.ShortenReq{Naddr: testNaddr})
	require.Equal(t, http.StatusCreated, w.Code)

	var res models.ShortenRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Regexp(t, `^[a-z0-9]{6}$`, res.Code)

	// redirect bumps the click counter
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/s/"+res.Code, nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://zap.cooking/recipe/"+testNaddr, w.Header().Get("Location"))

	// stats returns the stored record verbatim
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/"+res.Code, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var record models.ShortLink
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, res.Code, record.ShortCode)
	assert.Equal(t, testNaddr, record.Naddr)
	assert.Equal(t, models.LinkTypeRecipe, record.Type)
	assert.EqualValues(t, 1, record.Clicks)
	assert.NotZero(t, record.CreatedAt)
}

func TestShorten_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		req      models.ShortenReq
		wantCode int
	}{
		{name: "custom slug", req: models.ShortenReq{Naddr: testNaddr, Slug: "sourdough"}, wantCode: http.StatusCreated},
		{name: "reserved slug", req: models.ShortenReq{Naddr: testNaddr, Slug: "api"}, wantCode: http.StatusBadRequest},
		{name: "reserved login slug", req: models.ShortenReq{Naddr: testNaddr, Slug: "login"}, wantCode: http.StatusBadRequest},
		{name: "invalid slug", req: models.ShortenReq{Naddr: testNaddr, Slug: "x"}, wantCode: http.StatusBadRequest},
		{name: "malformed naddr", req: models.ShortenReq{Naddr: "lnbc-something"}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := newTestApp(t, memory.NewMemoryStorage(), false)
			w := postJSON(t, r, "/api/shorten", tt.req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestShorten_SlugConflictIs409(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/shorten", models.ShortenReq{Naddr: testNaddr, Slug: "focaccia"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/shorten", models.ShortenReq{Naddr: testNaddr, Slug: "focaccia"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestStats_UnknownCodeIs404(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/nothere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/s/nothere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInternalStats_SubnetGuard(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	req.Header.Set("X-Real-IP", "10.1.2.3")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Zero(t, stats.Links)
}

func TestPaymentFlow_Lightning(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/create-lightning-invoice", models.CreateInvoiceReq{
		Pubkey: testPubkey, Tier: "basic", Period: "monthly",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var invoice models.CreateInvoiceRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoice))
	assert.NotEmpty(t, invoice.Invoice)

	w = postJSON(t, r, "/api/verify-lightning-payment", models.VerifyPaymentReq{
		ReceiveRequestID: invoice.ReceiveRequestID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var state models.MembershipState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(t, state.Active)
}

func TestPaymentFlow_UnknownInvoiceIs404(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/verify-lightning-payment", models.VerifyPaymentReq{ReceiveRequestID: "rr-nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentFlow_BadTierIs400(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/create-lightning-invoice", models.CreateInvoiceReq{
		Pubkey: testPubkey, Tier: "platinum", Period: "monthly",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStrikeWebhook(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/create-lightning-invoice", models.CreateInvoiceReq{
		Pubkey: testPubkey, Tier: "basic", Period: "monthly",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	payload := map[string]interface{}{
		"eventType": "receive.completed",
		"data":      map[string]string{"paymentHash": "deadbeef"},
	}
	w = postJSON(t, r, "/api/strike-webhook", payload)
	assert.Equal(t, http.StatusOK, w.Code)

	payload["data"] = map[string]string{"paymentHash": "cafebabe"}
	w = postJSON(t, r, "/api/strike-webhook", payload)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClaimNIP05(t *testing.T) {
	store := memory.NewMemoryStorage()
	r := newTestApp(t, store, true)

	w := postJSON(t, r, "/api/claim-nip05", models.ClaimNIP05Req{Name: "alice", Pubkey: testPubkey})
	assert.Equal(t, http.StatusCreated, w.Code)

	// nostr.json now resolves the claim
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/nostr.json?name=alice", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc models.NostrJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, testPubkey, doc.Names["alice"])

	// reserved and conflicting names
	w = postJSON(t, r, "/api/claim-nip05", models.ClaimNIP05Req{Name: "admin", Pubkey: testPubkey})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := "32e1827635450ebb3c5a7d12c1f8e7b2b514439ac10a67eef3d9fd9c5c68e245"
	w = postJSON(t, r, "/api/claim-nip05", models.ClaimNIP05Req{Name: "alice", Pubkey: other})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimNIP05_RequiresMembership(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/claim-nip05", models.ClaimNIP05Req{Name: "alice", Pubkey: testPubkey})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGenerateRecipe_DisabledIs403(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := postJSON(t, r, "/api/generate-recipe", models.GenerateRecipeReq{Prompt: "pad thai"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPing(t *testing.T) {
	r := newTestApp(t, memory.NewMemoryStorage(), false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
