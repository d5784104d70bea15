package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lotbook/lotbook/internal/common"
	"github.com/lotbook/lotbook/internal/logging"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/sethvargo/go-retry"
)

// HTTPClient implements Client against the backend's JSON REST surface.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  tokenPair
	log     logging.Logger
	now     func() time.Time
}

// NewHTTPClient returns a client for the API at baseURL (no trailing slash).
func NewHTTPClient(baseURL string, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
		now:     time.Now,
	}
}

// SetTokens installs the session credentials obtained by the embedding
// application's authentication flow.
func (c *HTTPClient) SetTokens(access, refresh string) {
	c.tokens.set(access, refresh)
}

// do performs one API call with bounded retry on transient failures.
// Responses are classified into the sentinel errors of the common package.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	if c.tokens.nearExpiry(c.now()) {
		if err := c.refresh(ctx); err != nil {
			c.log.Debug(ctx, "proactive token refresh failed", "error", err)
		}
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, query, payload, out, true)
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	return errors.Is(err, common.ErrUnavailable)
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte, out any, allowRefresh bool) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access, _ := c.tokens.get(); access != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil

	case resp.StatusCode == http.StatusUnauthorized:
		if allowRefresh {
			if _, refreshToken := c.tokens.get(); refreshToken != "" {
				if err := c.refresh(ctx); err == nil {
					return c.doOnce(ctx, method, path, query, payload, out, false)
				}
			}
		}
		return common.ErrUnauthorized

	case resp.StatusCode == http.StatusNotFound:
		return common.ErrNotFound

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s: %s", common.ErrConflict, resp.Status, string(b))

	default:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, resp.Status)
	}
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	_, refreshToken := c.tokens.get()
	if refreshToken == "" {
		return common.ErrUnauthorized
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return err
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", nil, body, &result, false); err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	c.tokens.set(result.AccessToken, result.RefreshToken)
	return nil
}

// --- Client implementation ---

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doOnce(ctx, http.MethodGet, "/health", nil, nil, nil, false)
}

func (c *HTTPClient) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := c.do(ctx, http.MethodGet, "/sales", nil, nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (c *HTTPClient) ListItems(ctx context.Context, saleID string) ([]models.CatalogItem, error) {
	q := url.Values{"sale_id": {saleID}, "order": {"number"}}
	var result []models.CatalogItem
	if err := c.do(ctx, http.MethodGet, "/items", q, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) InsertItem(ctx context.Context, item *models.CatalogItem) (*models.CatalogItem, error) {
	created := &models.CatalogItem{}
	if err := c.do(ctx, http.MethodPost, "/items", nil, item, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, item *models.CatalogItem) error {
	return c.do(ctx, http.MethodPatch, "/items/"+url.PathEscape(item.ID), nil, item, nil)
}

func (c *HTTPClient) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil, nil)
}

func (c *HTTPClient) MaxItemNumber(ctx context.Context, saleID string) (int64, error) {
	q := url.Values{"sale_id": {saleID}}
	var result struct {
		MaxNumber *int64 `json:"max_number"`
	}
	if err := c.do(ctx, http.MethodGet, "/items/max-number", q, nil, &result); err != nil {
		return 0, err
	}
	// null means the sale has no numbered items yet
	if result.MaxNumber == nil {
		return 0, nil
	}
	return *result.MaxNumber, nil
}

func (c *HTTPClient) ListPhotos(ctx context.Context, saleID string) ([]models.Photo, error) {
	q := url.Values{"sale_id": {saleID}}
	var result []models.Photo
	if err := c.do(ctx, http.MethodGet, "/photos", q, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) InsertPhoto(ctx context.Context, p *models.Photo) error {
	return c.do(ctx, http.MethodPost, "/photos", nil, p, nil)
}

func (c *HTTPClient) UpdatePhoto(ctx context.Context, p *models.Photo) error {
	return c.do(ctx, http.MethodPatch, "/photos/"+url.PathEscape(p.ID), nil, p, nil)
}

func (c *HTTPClient) DeletePhoto(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/photos/"+url.PathEscape(id), nil, nil, nil)
}
