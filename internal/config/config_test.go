package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOP_NAME", "")
	t.Setenv("API_VERSION", "")
	t.Setenv("REPORT_CONCURRENCY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "2024-01", cfg.APIVersion)
	assert.Equal(t, 4, cfg.ReportConcurrency)
	assert.Equal(t, 1, cfg.ReportMaxPages)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.ReportSkipFailedLookups)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SHOP_NAME", "acme")
	t.Setenv("REPORT_CONCURRENCY", "8")
	t.Setenv("REPORT_SKIP_FAILED_LOOKUPS", "true")
	t.Setenv("SHOPIFY_REQUEST_TIMEOUT", "5s")
	t.Setenv("SHOPIFY_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.ShopName)
	assert.Equal(t, 8, cfg.ReportConcurrency)
	assert.True(t, cfg.ReportSkipFailedLookups)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RateLimit)
}

func TestShopDomain(t *testing.T) {
	assert.Equal(t, "acme.myshopify.com", ShopDomain("acme"))
	assert.Equal(t, "acme.myshopify.com", ShopDomain("acme.myshopify.com"))
	assert.Equal(t, "", ShopDomain(""))
}
