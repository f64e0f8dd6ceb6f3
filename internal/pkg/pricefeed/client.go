package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/domain/oracle"
	"github.com/sethvargo/go-retry"
)

// Client fetches exchange rates from a REST price-feed aggregator.
// Every LatestRate call hits the upstream; the engine relies on fresh
// observations and applies its own zero/staleness checks.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a price feed client for the aggregator at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// feedResponse is the aggregator wire format.
type feedResponse struct {
	Pair      string `json:"pair"`
	Answer    int64  `json:"answer"`
	Decimals  int32  `json:"decimals"`
	UpdatedAt int64  `json:"updated_at"`
}

// LatestRate implements oracle.RateSource. Transient upstream failures are
// retried with exponential backoff before the call is reported as an oracle
// error.
func (c *Client) LatestRate(ctx context.Context, pair oracle.Pair) (oracle.Rate, error) {
	var out feedResponse

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/v1/rates/%s", c.baseURL, pair)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("aggregator returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("aggregator returned %d: %s", resp.StatusCode, body)
		}

		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode aggregator response: %w", err)
		}
		return nil
	})
	if err != nil {
		return oracle.Rate{}, fmt.Errorf("%w: %s: %v", oracle.ErrRateUnavailable, pair, err)
	}

	return oracle.Rate{
		Value:     out.Answer,
		Decimals:  out.Decimals,
		UpdatedAt: time.Unix(out.UpdatedAt, 0),
	}, nil
}
