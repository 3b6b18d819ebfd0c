// Package scryfall talks to the card data provider: the bulk-data
// catalog, bulk file downloads, and single-print live lookups.
package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrDatasetNotFound is returned when the catalog has no entry matching
// the requested dataset kind.
var ErrDatasetNotFound = errors.New("bulk dataset not found")

// StatusError carries a non-retryable HTTP status from the provider.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d for %s", e.Code, e.URL)
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// BulkDataset is one entry from the provider's bulk-data catalog.
type BulkDataset struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	DownloadURI string    `json:"download_uri"`
	UpdatedAt   time.Time `json:"updated_at"`
	Size        int64     `json:"size"`
}

type bulkCatalog struct {
	Data []BulkDataset `json:"data"`
}

type Client struct {
	httpClient *http.Client
	bulkClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

func NewClient(baseURL, userAgent string, rps, maxRetries int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		// bulk files run to gigabytes; cancellation comes from the
		// request context, not a client timeout
		bulkClient: &http.Client{},
		userAgent:  userAgent,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
	}
}

// ListDatasets fetches the bulk-data catalog.
func (c *Client) ListDatasets(ctx context.Context) ([]BulkDataset, error) {
	var res bulkCatalog
	if err := c.get(ctx, c.baseURL+"/bulk-data", &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Dataset finds the catalog entry whose type or display name matches
// kind (case-insensitive, "default_cards" and "Default Cards" both hit).
func (c *Client) Dataset(ctx context.Context, kind string) (*BulkDataset, error) {
	datasets, err := c.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(kind))
	wantName := strings.ReplaceAll(want, "_", " ")
	for i := range datasets {
		d := &datasets[i]
		if strings.ToLower(d.Type) == want || strings.ToLower(d.Name) == wantName {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, kind)
}

// livePrint matches the single-card payload shape we care about.
type LivePrintResult struct {
	ID              string `json:"id"`
	OracleID        string `json:"oracle_id"`
	Name            string `json:"name"`
	Set             string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	Lang            string `json:"lang"`
	ScryfallURI     string `json:"scryfall_uri"`
	ImageURIs       struct {
		Small  string `json:"small"`
		Normal string `json:"normal"`
		Large  string `json:"large"`
	} `json:"image_uris"`
}

type searchPage struct {
	Data []LivePrintResult `json:"data"`
}

// LivePrint fetches one printing directly from the provider, for prints
// newer than the local bulk snapshot. A direct set/number lookup is
// tried first, then a name search scoped to the set.
func (c *Client) LivePrint(ctx context.Context, setCode, collectorNumber, nameHint string) (*LivePrintResult, error) {
	sc := strings.ToLower(strings.TrimSpace(setCode))
	cn := strings.TrimSpace(collectorNumber)
	if sc != "" && cn != "" {
		u := fmt.Sprintf("%s/cards/%s/%s", c.baseURL, url.PathEscape(sc), url.PathEscape(cn))
		var res LivePrintResult
		err := c.get(ctx, u, &res)
		if err == nil {
			return &res, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	if nameHint == "" {
		return nil, fmt.Errorf("%w: %s/%s", ErrDatasetNotFound, sc, cn)
	}

	q := fmt.Sprintf("!%q", nameHint)
	if sc != "" {
		q += " set:" + sc
	}
	u := fmt.Sprintf("%s/cards/search?q=%s&unique=prints&order=released", c.baseURL, url.QueryEscape(q))
	var page searchPage
	if err := c.get(ctx, u, &page); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, nameHint)
		}
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, nameHint)
	}
	return &page.Data[0], nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = &StatusError{Code: resp.StatusCode, URL: url}
				continue
			}
			return &StatusError{Code: resp.StatusCode, URL: url}
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
