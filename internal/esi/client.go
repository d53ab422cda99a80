package esi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/corpledger-dev/corpledger/internal/buildinfo"
	"github.com/corpledger-dev/corpledger/internal/config"
	"github.com/corpledger-dev/corpledger/internal/model"
)

const (
	requestTimeout = 30 * time.Second
	maxRetries     = 5
)

// Client talks to the EVE Swagger Interface on behalf of one corporation.
// Access tokens are minted lazily from the refresh token by the TokenSource,
// which caches them and collapses concurrent refreshes, so callers never see
// token lifecycle at all.
type Client struct {
	httpc     *http.Client
	base      string
	tokens    oauth2.TokenSource
	corpID    int64
	division  int
	userAgent string
	log       zerolog.Logger
}

// New builds a client from ESI credentials. The refresh token is exchanged
// for access tokens on demand against the configured token endpoint.
func New(esiCfg config.ESIConfig, corp config.CorpConfig, log zerolog.Logger) *Client {
	oc := oauth2.Config{
		ClientID:     esiCfg.ClientID,
		ClientSecret: esiCfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  esiCfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ts := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: esiCfg.RefreshToken})
	return NewWithTokenSource(esiCfg.BaseURL, ts, corp, log)
}

// NewWithTokenSource is New with an explicit token source. Tests use it with
// a static token against an httptest server.
func NewWithTokenSource(baseURL string, ts oauth2.TokenSource, corp config.CorpConfig, log zerolog.Logger) *Client {
	return &Client{
		httpc:     &http.Client{Timeout: requestTimeout},
		base:      strings.TrimRight(baseURL, "/"),
		tokens:    ts,
		corpID:    corp.CorporationID,
		division:  corp.WalletDivision,
		userAgent: buildinfo.UserAgent(),
		log:       log,
	}
}

// WalletJournal fetches one page of the corp wallet journal for the
// configured division. Returns the entries, the total page count from the
// X-Pages header, and an error.
func (c *Client) WalletJournal(ctx context.Context, page int) ([]model.JournalEntry, int, error) {
	path := fmt.Sprintf("/corporations/%d/wallets/%d/journal/", c.corpID, c.division)
	body, pages, err := c.getPaged(ctx, path, page, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching wallet journal page %d: %w", page, err)
	}
	entries, err := decodeList(body, func(e *model.JournalEntry, raw json.RawMessage) {
		e.Raw = raw
		e.Division = c.division
	})
	if err != nil {
		return nil, 0, fmt.Errorf("wallet journal page %d: %w", page, err)
	}
	return entries, pages, nil
}

// Contracts fetches one page of corp contracts.
func (c *Client) Contracts(ctx context.Context, page int) ([]model.Contract, int, error) {
	path := fmt.Sprintf("/corporations/%d/contracts/", c.corpID)
	body, pages, err := c.getPaged(ctx, path, page, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching contracts page %d: %w", page, err)
	}
	contracts, err := decodeList(body, func(ct *model.Contract, raw json.RawMessage) {
		ct.Raw = raw
	})
	if err != nil {
		return nil, 0, fmt.Errorf("contracts page %d: %w", page, err)
	}
	return contracts, pages, nil
}

// ContractItems fetches the item manifest of one contract. Returns
// ErrNotFound (wrapped) when the contract no longer exists upstream.
func (c *Client) ContractItems(ctx context.Context, contractID int64) ([]model.ContractItem, error) {
	path := fmt.Sprintf("/corporations/%d/contracts/%d/items/", c.corpID, contractID)
	body, _, err := c.getPaged(ctx, path, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching items for contract %d: %w", contractID, err)
	}
	items, err := decodeList(body, func(it *model.ContractItem, raw json.RawMessage) {
		it.Raw = raw
		it.ContractID = contractID
	})
	if err != nil {
		return nil, fmt.Errorf("items for contract %d: %w", contractID, err)
	}
	return items, nil
}

// IndustryJobs fetches one page of corp industry jobs, completed included.
func (c *Client) IndustryJobs(ctx context.Context, page int) ([]model.IndustryJob, int, error) {
	path := fmt.Sprintf("/corporations/%d/industry/jobs/", c.corpID)
	extra := url.Values{"include_completed": []string{"true"}}
	body, pages, err := c.getPaged(ctx, path, page, extra)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching industry jobs page %d: %w", page, err)
	}
	jobs, err := decodeList(body, func(j *model.IndustryJob, raw json.RawMessage) {
		j.Raw = raw
	})
	if err != nil {
		return nil, 0, fmt.Errorf("industry jobs page %d: %w", page, err)
	}
	return jobs, pages, nil
}

// MarketOrders fetches one page of the corp's open market orders. ESI
// reports no state for open orders; rows are normalized to OrderOpen.
func (c *Client) MarketOrders(ctx context.Context, page int) ([]model.MarketOrder, int, error) {
	path := fmt.Sprintf("/corporations/%d/orders/", c.corpID)
	body, pages, err := c.getPaged(ctx, path, page, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching market orders page %d: %w", page, err)
	}
	orders, err := decodeList(body, func(o *model.MarketOrder, raw json.RawMessage) {
		o.Raw = raw
		o.State = model.OrderOpen
		o.History = false
	})
	if err != nil {
		return nil, 0, fmt.Errorf("market orders page %d: %w", page, err)
	}
	return orders, pages, nil
}

// MarketOrderHistory fetches one page of settled (cancelled or expired)
// corp market orders.
func (c *Client) MarketOrderHistory(ctx context.Context, page int) ([]model.MarketOrder, int, error) {
	path := fmt.Sprintf("/corporations/%d/orders/history/", c.corpID)
	body, pages, err := c.getPaged(ctx, path, page, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching market order history page %d: %w", page, err)
	}
	orders, err := decodeList(body, func(o *model.MarketOrder, raw json.RawMessage) {
		o.Raw = raw
		o.History = true
	})
	if err != nil {
		return nil, 0, fmt.Errorf("market order history page %d: %w", page, err)
	}
	return orders, pages, nil
}

// TypeName resolves an item type id to its display name.
func (c *Client) TypeName(ctx context.Context, typeID int64) (string, error) {
	path := fmt.Sprintf("/universe/types/%d/", typeID)
	body, _, err := c.getPaged(ctx, path, 0, nil)
	if err != nil {
		return "", fmt.Errorf("resolving type %d: %w", typeID, err)
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding type %d: %w", typeID, err)
	}
	return payload.Name, nil
}

// CharacterName resolves a character id to its display name.
func (c *Client) CharacterName(ctx context.Context, characterID int64) (string, error) {
	path := fmt.Sprintf("/characters/%d/", characterID)
	body, _, err := c.getPaged(ctx, path, 0, nil)
	if err != nil {
		return "", fmt.Errorf("resolving character %d: %w", characterID, err)
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding character %d: %w", characterID, err)
	}
	return payload.Name, nil
}

// getPaged performs one GET, retrying transient failures with exponential
// backoff. page 0 means the endpoint is unpaginated. The returned page count
// comes from X-Pages and defaults to 1.
func (c *Client) getPaged(ctx context.Context, path string, page int, extra url.Values) (body []byte, pages int, err error) {
	query := url.Values{}
	for k, vs := range extra {
		query[k] = vs
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	operation := func() error {
		var hdr http.Header
		body, hdr, err = c.do(ctx, path, query)
		if err != nil {
			return c.retryable(ctx, err)
		}
		pages = 1
		if v := hdr.Get("X-Pages"); v != "" {
			if n, perr := strconv.Atoi(v); perr == nil && n > 0 {
				pages = n
			}
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if rerr := backoff.Retry(operation, bo); rerr != nil {
		return nil, 0, rerr
	}
	return body, pages, nil
}

// retryable sorts errors for the backoff loop: rate limits wait out the
// server's reset hint first, transport errors retry immediately, everything
// else is permanent.
func (c *Client) retryable(ctx context.Context, err error) error {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			c.log.Warn().Dur("wait", rl.RetryAfter).Msg("esi rate limited, waiting for reset")
			select {
			case <-time.After(rl.RetryAfter):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
		}
		return err
	}
	var te *TransportError
	if errors.As(err, &te) {
		c.log.Debug().Err(err).Msg("esi transient error, retrying")
		return err
	}
	return backoff.Permanent(err)
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, nil, &AuthError{Msg: fmt.Sprintf("refreshing token: %v", err)}
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, resp.Header, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, nil, &AuthError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(body))}
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.StatusCode == 420, resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, &RateLimitError{Status: resp.StatusCode, RetryAfter: resetHint(resp.Header)}
	case resp.StatusCode >= 500:
		return nil, nil, &TransportError{Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	default:
		return nil, nil, fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// resetHint reads the throttle reset from X-Esi-Error-Limit-Reset, falling
// back to Retry-After. Both are in whole seconds.
func resetHint(hdr http.Header) time.Duration {
	for _, key := range []string{"X-Esi-Error-Limit-Reset", "Retry-After"} {
		if v := hdr.Get(key); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}

// decodeList splits a JSON array into its elements, decodes each into T and
// hands the element's raw bytes to attach so records keep their original
// payload.
func decodeList[T any](body []byte, attach func(*T, json.RawMessage)) ([]T, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		attach(&v, raw)
		out = append(out, v)
	}
	return out, nil
}
