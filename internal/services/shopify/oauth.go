package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"shopcsv/internal/config"
	"shopcsv/internal/logger"
)

// ReadScopes are the only permissions the export needs.
var ReadScopes = []string{"read_orders", "read_products"}

var (
	ErrInvalidHMAC  = errors.New("callback hmac does not match")
	ErrInvalidShop  = errors.New("callback shop is not a myshopify.com domain")
	ErrMissingCode  = errors.New("callback has no authorization code")
	ErrTokenMissing = errors.New("no access token in response")
)

type OAuthService struct {
	config     *config.Config
	logger     *logger.Logger
	httpClient *http.Client
	endpoint   string
}

type OAuthOption func(*OAuthService)

// WithOAuthEndpoint sends token exchanges to a fixed host instead of the shop's domain.
func WithOAuthEndpoint(endpoint string) OAuthOption {
	return func(s *OAuthService) {
		s.endpoint = endpoint
	}
}

func NewOAuthService(cfg *config.Config, logger *logger.Logger, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildPermissionURL creates the Shopify OAuth authorization URL
func (s *OAuthService) BuildPermissionURL(shopDomain string, scopes []string, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", s.config.ShopifyAPIKey)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shopDomain, q.Encode())
}

// RequestToken verifies a callback's query parameters and exchanges its code
// for an offline access token.
func (s *OAuthService) RequestToken(ctx context.Context, params url.Values) (*TokenResponse, error) {
	if !s.ValidateHMAC(params) {
		return nil, ErrInvalidHMAC
	}

	shop := params.Get("shop")
	if !ValidShopDomain(shop) {
		return nil, ErrInvalidShop
	}

	code := params.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	return s.ExchangeCodeForToken(ctx, shop, code)
}

// ExchangeCodeForToken exchanges the authorization code for an access token
func (s *OAuthService) ExchangeCodeForToken(ctx context.Context, shopDomain, code string) (*TokenResponse, error) {
	base := s.endpoint
	if base == "" {
		base = "https://" + shopDomain
	}
	tokenURL := base + "/admin/oauth/access_token"

	data := url.Values{}
	data.Set("client_id", s.config.ShopifyAPIKey)
	data.Set("client_secret", s.config.ShopifySharedSecret)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status: %d", resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, ErrTokenMissing
	}

	s.logger.Debug("Exchanged OAuth code for %s (scope %s)", shopDomain, tokenResp.Scope)
	return &tokenResp, nil
}

// ValidateHMAC checks the hmac parameter Shopify attaches to redirects.
// The message is every other parameter, sorted by key, joined as k=v with &.
func (s *OAuthService) ValidateHMAC(params url.Values) bool {
	given := params.Get("hmac")
	if given == "" || s.config.ShopifySharedSecret == "" {
		return false
	}

	expected := SignParams(params, s.config.ShopifySharedSecret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(given)))
}

// SignParams computes the hex HMAC-SHA256 Shopify uses for redirect parameters.
func SignParams(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(params[k], ","))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateWebhook checks the X-Shopify-Hmac-Sha256 header of a webhook,
// a base64 HMAC-SHA256 of the raw body.
func (s *OAuthService) ValidateWebhook(body []byte, signature string) bool {
	if signature == "" || s.config.ShopifySharedSecret == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(body, s.config.ShopifySharedSecret)), []byte(signature))
}

func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// GenerateState generates a cryptographically secure random state
func GenerateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
