// Package rates предоставляет клиент для внешнего сервиса курсов валют.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured возвращается, если адрес сервиса курсов не задан.
var ErrNotConfigured = errors.New("rates client not configured")

// Client инкапсулирует HTTP-взаимодействие с сервисом курсов валют.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// LatestResponse описывает ответ сервиса с последними курсами.
type LatestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewClient создаёт HTTP-клиент для обращения к сервису курсов по указанному адресу.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// FetchRates запрашивает курсы валют symbols относительно base.
// Пустой ответ не считается ошибкой клиента: решение принимает вызывающая сторона.
func (c *Client) FetchRates(ctx context.Context, base string, symbols []string) (map[string]decimal.Decimal, error) {
	if c == nil || c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	endpoint := c.endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}

	params := url.Values{}
	params.Set("base", base)
	params.Set("symbols", strings.Join(symbols, ","))
	if c.apiKey != "" {
		params.Set("app_id", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result LatestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Rates, nil
}
