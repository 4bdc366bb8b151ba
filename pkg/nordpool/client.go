package nordpool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ehin/ehin/pkg/common"
	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Client fetches day-ahead prices from the Nord Pool data portal.
type Client struct {
	apiURL string
	area   string
	client *http.Client
}

// Configured sets up flags for the Nord Pool client and returns the instance.
func Configured() *Client {
	c := &Client{}
	apiURL := lflag.String("nordpool-api-url", "https://dataportal-api.nordpoolgroup.com", "Base URL for the Nord Pool data portal API")
	area := lflag.String("nordpool-area", types.AreaFinland, "Nord Pool delivery area to fetch")
	timeout := lflag.Duration("nordpool-timeout", 10*time.Second, "Timeout for requests to Nord Pool")

	lflag.Do(func() {
		c.apiURL = *apiURL
		c.area = *area
		c.client = common.HTTPClient(*timeout)
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("nordpool validation failed: %v", err))
		}
	})

	return c
}

// New returns a Client for apiURL and area using httpClient.
func New(apiURL, area string, httpClient *http.Client) *Client {
	return &Client{
		apiURL: apiURL,
		area:   area,
		client: httpClient,
	}
}

// Validate ensures the configuration is valid.
func (c *Client) Validate() error {
	if c.apiURL == "" {
		return fmt.Errorf("nordpool-api-url is required")
	}
	if _, err := url.Parse(c.apiURL); err != nil {
		return fmt.Errorf("failed to parse nordpool url (%s): %w", c.apiURL, err)
	}
	if c.area == "" {
		return fmt.Errorf("nordpool-area is required")
	}
	return nil
}

// Area returns the delivery area the client fetches.
func (c *Client) Area() string {
	return c.area
}

// GetDayAheadPrices fetches the day-ahead prices for the delivery day of date.
// A nil response with a nil error means the prices are not published yet.
func (c *Client) GetDayAheadPrices(ctx context.Context, date time.Time) (*PriceDataResponse, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	u = u.JoinPath("api", "DayAheadPrices")

	params := url.Values{}
	params.Set("date", date.Format(types.DateLayout))
	params.Set("market", types.MarketDayAhead)
	params.Set("deliveryArea", c.area)
	params.Set("currency", types.CurrencyEUR)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching prices from nordpool", slog.String("url", u.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch prices", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch prices from nordpool: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		log.Ctx(ctx).DebugContext(ctx, "nordpool has no prices for date", slog.String("date", date.Format(types.DateLayout)))
		return nil, nil
	default:
		return nil, fmt.Errorf("nordpool api returned status: %d", resp.StatusCode)
	}

	var data PriceDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode nordpool response", slog.Any("error", err))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched prices",
		slog.String("deliveryDate", data.DeliveryDateCET),
		slog.Int("version", data.Version),
		slog.Int("count", len(data.MultiAreaEntries)),
	)
	return &data, nil
}
