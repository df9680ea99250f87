package shopify

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMissingDomain = errors.New("shopify session has no shop domain")
	ErrMissingToken  = errors.New("shopify session has no access token")
	ErrUnauthorized  = errors.New("shopify rejected the access token")
	ErrNotFound      = errors.New("shopify resource not found")
)

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// Session is an authenticated handle for one shop. It is built per request or
// per job and passed explicitly; nothing caches it globally.
type Session struct {
	Domain     string
	Token      string
	APIVersion string
}

func NewSession(domain, token, apiVersion string) Session {
	return Session{
		Domain:     strings.ToLower(strings.TrimSpace(domain)),
		Token:      token,
		APIVersion: apiVersion,
	}
}

// Validate reports whether the session can be used for Admin API calls.
func (s Session) Validate() error {
	if s.Domain == "" {
		return ErrMissingDomain
	}
	if s.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// ValidShopDomain reports whether domain looks like a *.myshopify.com host.
func ValidShopDomain(domain string) bool {
	return shopDomainPattern.MatchString(domain)
}
