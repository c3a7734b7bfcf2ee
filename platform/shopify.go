package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/amirphl/AutoSEM/utils"
)

const (
	shopifyAPIVersion   = "2024-07"
	shopifyPlatformName = "shopify"
)

// ShopifyConfig holds Shopify Admin API credentials.
type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	Timeout     time.Duration
}

// ShopifyProduct is one product from the Shopify catalog.
type ShopifyProduct struct {
	ID             string
	Title          string
	Handle         string
	Vendor         string
	ProductType    string
	Status         string
	PriceCents     int64
	InventoryCount int64
}

// ShopifyOrder is one order with the fields revenue attribution needs.
type ShopifyOrder struct {
	ID              string
	TotalPriceCents int64
	CreatedAt       time.Time
	SourceName      string
	LandingSite     string
}

// ShopifyClient talks to the Shopify Admin REST API.
type ShopifyClient struct {
	config  ShopifyConfig
	baseURL string
	client  *http.Client
}

// NewShopifyClient creates a new Shopify Admin API client
func NewShopifyClient(config ShopifyConfig) *ShopifyClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	baseURL := ""
	if config.ShopDomain != "" {
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", config.ShopDomain, shopifyAPIVersion)
	}
	return &ShopifyClient{
		config:  config,
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

func (c *ShopifyClient) Configured() bool {
	return c.config.ShopDomain != "" && c.config.AccessToken != ""
}

func (c *ShopifyClient) doGet(ctx context.Context, op, path string, query url.Values, out any) error {
	if !c.Configured() {
		return NewError(shopifyPlatformName, op, ErrorKindNotConfigured, fmt.Errorf("missing shop domain or access token"))
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewError(shopifyPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(shopifyPlatformName, op, ErrorKindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(shopifyPlatformName, op, ErrorKindTransient, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewError(shopifyPlatformName, op, classifyStatus(resp.StatusCode),
			fmt.Errorf("admin API error %d: %s", resp.StatusCode, string(body)))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return NewError(shopifyPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}

type shopifyProductsResponse struct {
	Products []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Handle      string `json:"handle"`
		Vendor      string `json:"vendor"`
		ProductType string `json:"product_type"`
		Status      string `json:"status"`
		Variants    []struct {
			Price             string `json:"price"`
			InventoryQuantity int64  `json:"inventory_quantity"`
		} `json:"variants"`
	} `json:"products"`
}

// ListProducts returns the shop catalog. Price is taken from the first
// variant; inventory is summed across variants.
func (c *ShopifyClient) ListProducts(ctx context.Context) ([]ShopifyProduct, error) {
	query := url.Values{}
	query.Set("limit", "250")

	var resp shopifyProductsResponse
	err := c.doGet(ctx, "ListProducts", "/products.json", query, &resp)
	if err != nil {
		return nil, err
	}

	products := make([]ShopifyProduct, 0, len(resp.Products))
	for _, item := range resp.Products {
		product := ShopifyProduct{
			ID:          fmt.Sprintf("%d", item.ID),
			Title:       item.Title,
			Handle:      item.Handle,
			Vendor:      item.Vendor,
			ProductType: item.ProductType,
			Status:      item.Status,
		}
		for i, variant := range item.Variants {
			if i == 0 {
				product.PriceCents, _ = utils.CentsFromDollarString(variant.Price)
			}
			product.InventoryCount += variant.InventoryQuantity
		}
		products = append(products, product)
	}

	return products, nil
}

type shopifyOrdersResponse struct {
	Orders []struct {
		ID          int64  `json:"id"`
		TotalPrice  string `json:"total_price"`
		CreatedAt   string `json:"created_at"`
		SourceName  string `json:"source_name"`
		LandingSite string `json:"landing_site"`
	} `json:"orders"`
}

// ListOrdersSince returns orders created at or after the given time.
func (c *ShopifyClient) ListOrdersSince(ctx context.Context, since time.Time) ([]ShopifyOrder, error) {
	query := url.Values{}
	query.Set("status", "any")
	query.Set("limit", "250")
	query.Set("created_at_min", since.UTC().Format(time.RFC3339))

	var resp shopifyOrdersResponse
	err := c.doGet(ctx, "ListOrdersSince", "/orders.json", query, &resp)
	if err != nil {
		return nil, err
	}

	orders := make([]ShopifyOrder, 0, len(resp.Orders))
	for _, item := range resp.Orders {
		total, _ := utils.CentsFromDollarString(item.TotalPrice)
		createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
		orders = append(orders, ShopifyOrder{
			ID:              fmt.Sprintf("%d", item.ID),
			TotalPriceCents: total,
			CreatedAt:       createdAt,
			SourceName:      item.SourceName,
			LandingSite:     item.LandingSite,
		})
	}

	return orders, nil
}

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *ShopifyClient) SetBaseURL(u string) { c.baseURL = u }
