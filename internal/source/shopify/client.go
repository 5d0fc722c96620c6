package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quent-dev/inventory-system/internal/config"
	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/source"
)

const (
	pageSize = 250
	// maxOrders bounds the order feed scan. Past the cap the feed is
	// returned truncated rather than failing the whole computation.
	maxOrders = 50000
	maxPages  = maxOrders / pageSize
)

// Client fetches components and order history from the Shopify Admin REST
// API. It implements source.Catalog for every configured store.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type productsResponse struct {
	Products []struct {
		Title    string `json:"title"`
		Status   string `json:"status"`
		Variants []struct {
			ID                int64  `json:"id"`
			Title             string `json:"title"`
			SKU               string `json:"sku"`
			InventoryQuantity int    `json:"inventory_quantity"`
		} `json:"variants"`
	} `json:"products"`
}

type ordersResponse struct {
	Orders []struct {
		ID        int64  `json:"id"`
		CreatedAt string `json:"created_at"`
		LineItems []struct {
			SKU      string `json:"sku"`
			Quantity int    `json:"quantity"`
		} `json:"line_items"`
	} `json:"orders"`
}

// ListComponents returns one component per active product variant that
// carries a SKU. Variants without a SKU are skipped, matching the order
// feed's blank-SKU policy.
func (c *Client) ListComponents(ctx context.Context, store string) ([]domain.Component, error) {
	sc, err := c.cfg.Store(store)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("fields", "id,title,variants,status")
	params.Set("status", "active")

	var resp productsResponse
	if err := c.get(ctx, sc, "products.json", params, &resp); err != nil {
		return nil, fmt.Errorf("list components for %s: %w", store, err)
	}

	now := time.Now()
	components := make([]domain.Component, 0, len(resp.Products))
	skipped := 0
	for _, p := range resp.Products {
		if p.Status != "" && p.Status != "active" {
			continue
		}
		for _, v := range p.Variants {
			sku := strings.TrimSpace(v.SKU)
			if sku == "" {
				skipped++
				continue
			}
			components = append(components, domain.Component{
				SKU:          sku,
				Name:         fmt.Sprintf("%s - %s", p.Title, v.Title),
				CurrentStock: v.InventoryQuantity,
				LastUpdated:  now,
			})
		}
	}

	if skipped > 0 {
		log.Debug().Str("store", store).Int("skipped", skipped).Msg("variants without SKU skipped")
	}

	return components, nil
}

// ListOrders scans the order feed for the given window using cursor
// pagination on created_at_max. The scan stops at the safety cap and
// reports the feed as truncated.
func (c *Client) ListOrders(ctx context.Context, store string, since, until time.Time) (source.OrderFeed, error) {
	sc, err := c.cfg.Store(store)
	if err != nil {
		return source.OrderFeed{}, err
	}

	params := url.Values{}
	params.Set("status", "any")
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("fields", "line_items,created_at,id")
	params.Set("created_at_min", since.UTC().Format(time.RFC3339))
	params.Set("created_at_max", until.UTC().Format(time.RFC3339))

	feed := source.OrderFeed{}
	for page := 0; page < maxPages; page++ {
		var resp ordersResponse
		if err := c.get(ctx, sc, "orders.json", params, &resp); err != nil {
			return source.OrderFeed{}, fmt.Errorf("list orders for %s: %w", store, err)
		}
		if len(resp.Orders) == 0 {
			return feed, nil
		}

		var oldest time.Time
		for _, order := range resp.Orders {
			createdAt, perr := time.Parse(time.RFC3339, order.CreatedAt)
			if perr != nil {
				continue
			}
			if createdAt.Before(since) {
				return feed, nil
			}
			oldest = createdAt

			feed.Orders++
			for _, item := range order.LineItems {
				feed.Lines = append(feed.Lines, source.OrderLine{
					SKU:       strings.TrimSpace(item.SKU),
					Quantity:  item.Quantity,
					CreatedAt: createdAt,
				})
			}

			if feed.Orders >= maxOrders {
				feed.Truncated = true
				log.Warn().Str("store", store).Int("orders", feed.Orders).Msg("order feed scan hit safety cap")
				return feed, nil
			}
		}

		if len(resp.Orders) < pageSize {
			return feed, nil
		}
		// Cursor for the next page: everything strictly before the oldest
		// order seen so far.
		params.Set("created_at_max", oldest.UTC().Format(time.RFC3339))
	}

	feed.Truncated = true
	return feed, nil
}

// TestConnection reports whether the store's credentials can reach the API.
func (c *Client) TestConnection(ctx context.Context, store string) bool {
	sc, err := c.cfg.Store(store)
	if err != nil {
		return false
	}
	var out map[string]json.RawMessage
	if err := c.get(ctx, sc, "shop.json", nil, &out); err != nil {
		return false
	}
	_, ok := out["shop"]
	return ok
}

func (c *Client) get(ctx context.Context, sc config.Store, endpoint string, params url.Values, out any) error {
	base := fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/%s", sc.ShopDomain, sc.APIVersion, endpoint)

	for {
		reqURL := base
		if len(params) > 0 {
			reqURL = base + "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-Shopify-Access-Token", sc.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("shopify request failed: %w", err)
		}

		// Honor rate limiting and retry the same request.
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Second
			if v := resp.Header.Get("Retry-After"); v != "" {
				if secs, perr := strconv.Atoi(v); perr == nil && secs > 0 {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter):
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read shopify response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("shopify returned status %d for %s", resp.StatusCode, endpoint)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode shopify response: %w", err)
		}
		return nil
	}
}
