// Package appraise values contract item manifests through the Janice
// pricer service.
package appraise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/config"
)

const (
	requestTimeout = 30 * time.Second
	// throttleDelay spaces out successive pricer calls.
	throttleDelay = 750 * time.Millisecond
)

// request is the Appraisal.create envelope the pricer expects, posted as
// JSON with a text/plain content type.
type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params params `json:"params"`
}

type params struct {
	MarketID        int    `json:"marketId"`
	Designation     int    `json:"designation"`
	Pricing         int    `json:"pricing"`
	PricingVariant  int    `json:"pricingVariant"`
	PricePercentage int    `json:"pricePercentage"`
	Input           string `json:"input"`
	Comment         string `json:"comment"`
	Compactize      bool   `json:"compactize"`
}

type response struct {
	Result struct {
		ImmediatePrices struct {
			TotalSplitPrice decimal.Decimal `json:"totalSplitPrice"`
		} `json:"immediatePrices"`
	} `json:"result"`
}

// Client posts appraisal requests to the Janice endpoint. Calls in this
// program are sequential, so the throttle state needs no lock.
type Client struct {
	httpc  *http.Client
	url    string
	apiKey string
	delay  time.Duration
	last   time.Time
	log    zerolog.Logger
}

func New(cfg config.JaniceConfig, log zerolog.Logger) *Client {
	return &Client{
		httpc:  &http.Client{Timeout: requestTimeout},
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		delay:  throttleDelay,
		log:    log,
	}
}

// Enabled reports whether an API key is configured. Without one the
// pricer is never called.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Appraise prices one "QTY Name" item list and returns the total
// immediate split price.
func (c *Client) Appraise(ctx context.Context, contractID int64, input string) (decimal.Decimal, error) {
	if err := c.throttle(ctx); err != nil {
		return decimal.Zero, err
	}

	body, err := json.Marshal(request{
		ID:     contractID,
		Method: "Appraisal.create",
		Params: params{
			MarketID:        2,
			Designation:     100,
			Pricing:         200,
			PricingVariant:  100,
			PricePercentage: 1,
			Input:           input,
			Compactize:      true,
		},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("encoding appraisal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, fmt.Errorf("building appraisal request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.apiKey != "" {
		req.Header.Set("X-ApiKey", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("posting appraisal: %w", err)
	}
	defer resp.Body.Close()
	c.last = time.Now()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading appraisal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("appraisal returned status %d", resp.StatusCode)
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return decimal.Zero, fmt.Errorf("decoding appraisal response: %w", err)
	}
	return out.Result.ImmediatePrices.TotalSplitPrice, nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.last.IsZero() {
		return nil
	}
	wait := c.delay - time.Since(c.last)
	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
