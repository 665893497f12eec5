package landport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/onelandworld/landport-go/chain"
)

const paymentTokenCacheTTL = 5 * time.Minute

// APIClient handles HTTP requests to the orderbook API
type APIClient struct {
	host   string
	apiKey string
	client *http.Client

	mu                sync.Mutex
	paymentTokens     []PaymentToken
	paymentTokensTime time.Time
}

// NewAPIClient creates a new orderbook API client
func NewAPIClient(host, apiKey string, timeout time.Duration) *APIClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		host:   host,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// doRequest performs an HTTP request
func (c *APIClient) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, xerrors.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+endpoint, reqBody)
	if err != nil {
		return nil, xerrors.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// decodeJSONResponse reads the response body, checks HTTP status and
// decodes JSON
func (c *APIClient) decodeJSONResponse(resp *http.Response, result interface{}) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyStr := string(bodyBytes)
		if bodyStr == "" {
			bodyStr = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: bodyStr}
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		bodyStr := string(bodyBytes)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return xerrors.Errorf("decode JSON response (body: %s): %w", bodyStr, err)
	}

	return nil
}

// GetAsset fetches the orderbook's view of one asset, including its
// collection fee settings
func (c *APIClient) GetAsset(ctx context.Context, query AssetQuery) (*AssetInfo, error) {
	endpoint := fmt.Sprintf("/api/v1/asset/%s/%s",
		url.PathEscape(query.TokenContract), url.PathEscape(query.TokenID))

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var asset AssetInfo
	if err := c.decodeJSONResponse(resp, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetPaymentTokens fetches the fungible tokens the orderbook accepts
// as payment, with a short-lived cache on unfiltered listings
func (c *APIClient) GetPaymentTokens(ctx context.Context, query PaymentTokenQuery) ([]PaymentToken, error) {
	unfiltered := query == (PaymentTokenQuery{})
	if unfiltered {
		c.mu.Lock()
		if c.paymentTokens != nil && time.Since(c.paymentTokensTime) < paymentTokenCacheTTL {
			tokens := c.paymentTokens
			c.mu.Unlock()
			return tokens, nil
		}
		c.mu.Unlock()
	}

	endpoint := "/api/v1/tokens"
	params := url.Values{}
	if query.Symbol != "" {
		params.Set("symbol", query.Symbol)
	}
	if query.Address != "" {
		params.Set("address", query.Address)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Tokens []PaymentToken `json:"tokens"`
	}
	if err := c.decodeJSONResponse(resp, &result); err != nil {
		return nil, err
	}

	if unfiltered {
		c.mu.Lock()
		c.paymentTokens = result.Tokens
		c.paymentTokensTime = time.Now()
		c.mu.Unlock()
	}

	return result.Tokens, nil
}

// PostOrder submits a signed order to the orderbook and returns the
// stored order with read-only server fields appended
func (c *APIClient) PostOrder(ctx context.Context, order *OrderJSON) (*chain.Order, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/orders", order)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var stored OrderJSON
	if err := c.decodeJSONResponse(resp, &stored); err != nil {
		return nil, err
	}
	return OrderFromJSON(&stored)
}

// PostAssetWhitelist registers an email allowed to buy a gated asset.
// Requires an API key authorized for the asset's contract.
func (c *APIClient) PostAssetWhitelist(ctx context.Context, query AssetQuery, email string) error {
	endpoint := fmt.Sprintf("/api/v1/asset/%s/%s/whitelist",
		url.PathEscape(query.TokenContract), url.PathEscape(query.TokenID))

	body := map[string]string{"email": email}
	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeJSONResponse(resp, nil)
}
