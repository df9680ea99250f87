package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shopcsv/internal/logger"

	"github.com/tomnomnom/linkheader"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
)

// APIError is returned for any non-2xx answer that has no more specific meaning.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

type Client struct {
	session    Session
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	logger     *logger.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(perSecond, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRequestTimeout bounds every single API call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

func NewClient(session Session, logger *logger.Logger, opts ...Option) *Client {
	c := &Client{
		session: session,
		baseURL: "https://" + session.Domain,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListOrders fetches one page of orders. NextPage is set when Shopify
// advertises a following page in the Link header.
func (c *Client) ListOrders(ctx context.Context, params ListOrdersParams) (*OrdersResponse, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	// page_info cannot be combined with filters other than limit
	if params.PageInfo != "" {
		q.Set("page_info", params.PageInfo)
	} else if params.Status != "" {
		q.Set("status", params.Status)
	}

	var ordersResp OrdersResponse
	header, err := c.get(ctx, "orders.json", q, &ordersResp)
	if err != nil {
		return nil, err
	}

	ordersResp.NextPage = nextPageInfo(header.Get("Link"))
	return &ordersResp, nil
}

// GetOrderTransactions fetches all transactions of an order
func (c *Client) GetOrderTransactions(ctx context.Context, orderID int64) ([]Transaction, error) {
	var resp struct {
		Transactions []Transaction `json:"transactions"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("orders/%d/transactions.json", orderID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// GetProduct fetches the id and vendor of a product
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var resp struct {
		Product Product `json:"product"`
	}
	q := url.Values{}
	q.Set("fields", "id,vendor")
	if _, err := c.get(ctx, fmt.Sprintf("products/%d.json", productID), q, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// GetOrderRisks fetches the fraud analysis results of an order
func (c *Client) GetOrderRisks(ctx context.Context, orderID int64) ([]OrderRisk, error) {
	var resp struct {
		Risks []OrderRisk `json:"risks"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("orders/%d/risks.json", orderID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Risks, nil
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, c.session.APIVersion, path)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target interface{}) (http.Header, error) {
	if err := c.session.Validate(); err != nil {
		return nil, err
	}

	reqURL := c.endpoint(path)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		status, header, body, err := c.do(ctx, reqURL)
		if err != nil {
			return nil, err
		}

		// Shopify throttles with 429 and tells us how long to back off
		if status == http.StatusTooManyRequests && attempt < c.maxRetries {
			wait := retryAfter(header)
			c.logger.Debug("Shopify throttled %s, retrying in %s", path, wait)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, fmt.Errorf("%s: %w", path, ErrUnauthorized)
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		case status < 200 || status > 299:
			return nil, &APIError{StatusCode: status, Body: string(body)}
		}

		if err := json.Unmarshal(body, target); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return header, nil
	}
}

func (c *Client) do(ctx context.Context, reqURL string) (int, http.Header, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add authentication header
	req.Header.Set("X-Shopify-Access-Token", c.session.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, requestError("failed to make request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, requestError("failed to read response", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// requestError wraps a transport failure. Timeouts from the http.Client or
// the network always match context.DeadlineExceeded.
func requestError(msg string, err error) error {
	var netErr net.Error
	if !errors.Is(err, context.DeadlineExceeded) && errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", msg, context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func nextPageInfo(link string) string {
	if link == "" {
		return ""
	}
	for _, l := range linkheader.Parse(link).FilterByRel("next") {
		u, err := url.Parse(l.URL)
		if err != nil {
			continue
		}
		if info := u.Query().Get("page_info"); info != "" {
			return info
		}
	}
	return ""
}

func retryAfter(header http.Header) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return time.Second
}
