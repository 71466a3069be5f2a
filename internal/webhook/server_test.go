package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitrelay/internal/config"
	"gitrelay/internal/registry"
)

func newTestServer(t *testing.T, notifier *fakeNotifier) *Server {
	t.Helper()

	regs, err := registry.Open(filepath.Join(t.TempDir(), "registrations.json"))
	require.NoError(t, err)
	require.NoError(t, regs.Register(testRepo, "abc", "123456"))

	cfg := config.ServerConfig{
		Listen:       "127.0.0.1:0",
		MaxBodyBytes: 4096,
	}
	return NewServer(cfg, NewProcessor(regs, notifier, nil))
}

func postWebhook(router http.Handler, kind, signature string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if kind != "" {
		req.Header.Set(EventHeader, kind)
	}
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWebhookEndToEndSuccess(t *testing.T) {
	notifier := &fakeNotifier{}
	router := newTestServer(t, notifier).routes()

	body := pushBody()
	rec := postWebhook(router, "push", computeSignature(body, "abc"), body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusSuccess, decodeResponse(t, rec).Status)

	require.Len(t, notifier.sent, 1)
	msg := notifier.sent[0].message
	assert.Contains(t, msg, "o/r")
	assert.Contains(t, msg, "main")
	assert.Contains(t, msg, "alice")
}

func TestWebhookWrongSignature(t *testing.T) {
	notifier := &fakeNotifier{}
	router := newTestServer(t, notifier).routes()

	body := pushBody()
	rec := postWebhook(router, "push", computeSignature(body, "not-the-secret"), body)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, notifier.sent)
}

func TestWebhookUnregisteredRepoIgnored(t *testing.T) {
	notifier := &fakeNotifier{}
	router := newTestServer(t, notifier).routes()

	body := []byte(`{"repository":{"html_url":"https://git.x/nobody/home","full_name":"nobody/home"}}`)
	rec := postWebhook(router, "push", "whatever", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusIgnored, decodeResponse(t, rec).Status)
	assert.Empty(t, notifier.sent)
}

func TestWebhookNormalizedLookup(t *testing.T) {
	notifier := &fakeNotifier{}
	router := newTestServer(t, notifier).routes()

	// Same repo, different scheme and port than the registered URL.
	body := []byte(`{
		"ref": "refs/heads/main",
		"pusher": {"username": "alice"},
		"repository": {"html_url": "http://git.x:3000/o/r", "full_name": "o/r"}
	}`)
	rec := postWebhook(router, "push", computeSignature(body, "abc"), body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusSuccess, decodeResponse(t, rec).Status)
	assert.Len(t, notifier.sent, 1)
}

func TestWebhookMissingEventHeader(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{}).routes()

	rec := postWebhook(router, "", "sig", pushBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMalformedJSON(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{}).routes()

	rec := postWebhook(router, "push", "sig", []byte("{broken"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookDeliveryFailure(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{fail: true}).routes()

	body := pushBody()
	rec := postWebhook(router, "push", computeSignature(body, "abc"), body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, StatusError, decodeResponse(t, rec).Status)
}

func TestWebhookPayloadTooLarge(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{}).routes()

	big := []byte(`{"pad":"` + strings.Repeat("x", 5000) + `"}`)
	rec := postWebhook(router, "push", "sig", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{}).routes()

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{}).routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestServer(t, &fakeNotifier{}).routes()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	regs, err := registry.Open(filepath.Join(t.TempDir(), "registrations.json"))
	require.NoError(t, err)

	cfg := config.ServerConfig{
		Listen:         "127.0.0.1:0",
		MaxBodyBytes:   4096,
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}
	router := NewServer(cfg, NewProcessor(regs, &fakeNotifier{}, nil)).routes()

	body := []byte(`{"repository":{"html_url":"https://git.x/o/r","full_name":"o/r"}}`)

	first := postWebhook(router, "push", "sig", body)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(router, "push", "sig", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
