package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402cats/config"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/utils"
)

func newTestRouter(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	doc, err := NewDocument(cfg)
	require.NoError(t, err)
	h, err := NewRouter(doc, opts...)
	require.NoError(t, err)
	return h
}

func TestNewDocument(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	doc, err := NewDocument(cfg)
	require.NoError(t, err)

	require.Len(t, doc.Accepts, 1)
	req := doc.Accepts[0]
	assert.Equal(t, 1, doc.X402Version)
	assert.Equal(t, "exact", req.Scheme)
	assert.Equal(t, "base", req.Network)
	assert.Equal(t, "3000000", req.MaxAmountRequired)
	assert.Equal(t, "https://x402-website.vercel.app", req.Resource)
	assert.Equal(t, "0x86F81966e14dA17193CC3F3d6903184730F36681", req.PayTo)
	assert.Equal(t, 300, req.MaxTimeoutSeconds)
	assert.Equal(t, "USDC", req.Asset)
	assert.Contains(t, req.Description, "5,555 total supply, max 20 per wallet")
	assert.Equal(t, "3 USDC", req.Extra["pricePerNFT"])
	assert.Equal(t, "Base Mainnet", req.Extra["blockchain"])
	assert.Equal(t, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", req.Extra["usdcContract"])

	require.NotNil(t, req.OutputSchema)
	assert.Equal(t, "POST", req.OutputSchema.Input.Method)
	assert.Equal(t, "Number of NFTs to mint (1-20)", req.OutputSchema.Input.BodyFields["quantity"].Description)
	assert.True(t, req.OutputSchema.Input.BodyFields["walletAddress"].Required)
	assert.Equal(t, "array", req.OutputSchema.Output["tokenIds"].Type)
	assert.Len(t, req.OutputSchema.Output, 5)
}

func TestSchemaEndpoint(t *testing.T) {
	h := newTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, SchemaPath, strings.NewReader("{}")))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

			doc, err := utils.ParseX402Response(rec.Body.Bytes())
			require.NoError(t, err)
			assert.Equal(t, "3000000", doc.Accepts[0].MaxAmountRequired)

			var raw map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
			extra := raw["accepts"].([]any)[0].(map[string]any)["extra"].(map[string]any)
			assert.EqualValues(t, 5555, extra["totalSupply"])
			assert.EqualValues(t, 20, extra["maxPerWallet"])
		})
	}
}

func TestSchemaOptions(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, SchemaPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// browser preflight
	req := httptest.NewRequest(http.MethodOptions, SchemaPath, nil)
	req.Header.Set("Origin", "https://www.x402scan.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCrossOriginGet(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, SchemaPath, nil)
	req.Header.Set("Origin", "https://www.x402scan.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(reg)
	require.NoError(t, err)

	h := newTestRouter(t, WithMetrics(rec), WithGatherer(reg))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, SchemaPath, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `x402cats_events_total{kind="",stage="GET",type="schema_served"} 1`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouterRejectsInvalidDocument(t *testing.T) {
	_, err := NewRouter(&types.X402Response{X402Version: 1})

	var xerr *types.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, types.ErrInvalidSchema, xerr.Code)
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "5,555", groupThousands(5555))
	assert.Equal(t, "555", groupThousands(555))
	assert.Equal(t, "1,000,000", groupThousands(1_000_000))
	assert.Equal(t, "-12,345", groupThousands(-12345))
}
