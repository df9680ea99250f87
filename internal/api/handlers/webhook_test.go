package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopcsv/internal/database"
	"shopcsv/internal/services/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) webhook(topic string, body []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Topic", topic)
	req.Header.Set("X-Shopify-Shop-Domain", "acme.myshopify.com")
	req.Header.Set("X-Shopify-Hmac-Sha256", signature)
	e.router.ServeHTTP(w, req)
	return w
}

func TestWebhook_UninstallRevokesStore(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	_, err := env.db.SaveStore("acme.myshopify.com", "tok", "read_orders")
	require.NoError(t, err)

	body := []byte(`{"domain":"acme.myshopify.com"}`)
	w := env.webhook("app/uninstalled", body, shopify.SignWebhook(body, env.cfg.ShopifySharedSecret))
	require.Equal(t, http.StatusOK, w.Code)

	_, err = env.db.FindStoreByDomain("acme.myshopify.com")
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.Equal(t, http.StatusUnauthorized, env.get("/stores/download_csv").Code)
}

func TestWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	_, err := env.db.SaveStore("acme.myshopify.com", "tok", "read_orders")
	require.NoError(t, err)

	w := env.webhook("app/uninstalled", []byte(`{}`), "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err = env.db.FindStoreByDomain("acme.myshopify.com")
	assert.NoError(t, err)
}

func TestWebhook_UnhandledTopic(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	body := []byte(`{}`)
	w := env.webhook("orders/create", body, shopify.SignWebhook(body, env.cfg.ShopifySharedSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not processed")
}
