// Package coupang is a client for the marketplace seller API (Wing open API).
package coupang

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jafarshop/relister/internal/category"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/metrics"
	"github.com/jafarshop/relister/pkg/errors"
)

const (
	sellerProductsPath = "/v2/providers/seller_api/apis/api/v1/marketplace/seller-products"
	categoryMetasPath  = "/v2/providers/seller_api/apis/api/v1/marketplace/meta/category-related-metas/display-category-codes/%d"
	categoryTreePath   = "/v2/providers/seller_api/apis/api/v1/marketplace/meta/display-categories"
	autoCategoryPath   = "/v2/providers/seller_api/apis/api/v1/marketplace/vendors/%s/check-auto-category-agreed"
	predictPath        = "/v2/providers/openapi/apis/api/v1/categorization/predict"

	maxResponseBytes = 8 << 20
)

// Response is a raw seller API reply; the body is kept verbatim
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON returns the body as raw JSON, or as a JSON string when it is not JSON
func (r *Response) JSON() json.RawMessage {
	if json.Valid(r.Body) {
		return json.RawMessage(r.Body)
	}
	quoted, _ := json.Marshal(string(r.Body))
	return quoted
}

type Client struct {
	baseURL  string
	vendorID string
	signer   *Signer
	limiter  *rate.Limiter
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a client for one seller account
func NewClient(cfg config.CoupangConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api-gateway.coupang.com"
	}
	return &Client{
		baseURL:  baseURL,
		vendorID: cfg.VendorID,
		signer:   NewSigner(cfg.AccessKey, cfg.SecretKey),
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		http: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Do sends one signed request. body may be nil. Transport failures return an
// error; any HTTP status is returned as a Response.
func (c *Client) Do(ctx context.Context, operation, method, path, query string, body any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	target := c.baseURL + path
	if query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", c.signer.Authorization(method, path, query))
	req.Header.Set("X-Requested-By", "relister")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveDestination(operation, 0, started)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	metrics.ObserveDestination(operation, resp.StatusCode, started)

	c.logger.Debug("Seller API call",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
	)
	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}

// CreateResult is a successful create-listing reply
type CreateResult struct {
	*Response
	SellerProductID int64
}

// CreateListing submits a new listing. Non-2xx replies and replies without a
// listing id are returned as *errors.ErrDestinationRejected.
func (c *Client) CreateListing(ctx context.Context, payload *domain.ListingPayload) (*CreateResult, error) {
	query := "vendorId=" + url.QueryEscape(payload.VendorID)
	resp, err := c.Do(ctx, "create_listing", http.MethodPost, sellerProductsPath, query, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, rejected("create_listing", resp)
	}

	var envelope struct {
		Code string          `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, rejected("create_listing", resp)
	}
	id, ok := parseID(envelope.Data)
	if !ok {
		return nil, rejected("create_listing", resp)
	}
	c.logger.Info("Listing created", zap.Int64("sellerProductId", id), zap.String("name", payload.SellerProductName))
	return &CreateResult{Response: resp, SellerProductID: id}, nil
}

// RequestApproval asks the marketplace to start reviewing a listing
func (c *Client) RequestApproval(ctx context.Context, sellerProductID int64) (*Response, error) {
	path := fmt.Sprintf("%s/%d/approvals", sellerProductsPath, sellerProductID)
	resp, err := c.Do(ctx, "request_approval", http.MethodPut, path, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, rejected("request_approval", resp)
	}
	return resp, nil
}

// GetListing fetches a listing as stored by the marketplace
func (c *Client) GetListing(ctx context.Context, sellerProductID int64) (*Response, error) {
	return c.Do(ctx, "get_listing", http.MethodGet, fmt.Sprintf("%s/%d", sellerProductsPath, sellerProductID), "", nil)
}

// GetListingHistories fetches the status history of a listing
func (c *Client) GetListingHistories(ctx context.Context, sellerProductID int64) (*Response, error) {
	return c.Do(ctx, "get_listing_histories", http.MethodGet, fmt.Sprintf("%s/%d/histories", sellerProductsPath, sellerProductID), "", nil)
}

// GetCategoryMetadata fetches the metadata of a display category
func (c *Client) GetCategoryMetadata(ctx context.Context, code int64) (*Response, error) {
	return c.Do(ctx, "category_metadata", http.MethodGet, fmt.Sprintf(categoryMetasPath, code), "", nil)
}

// RecommendCategory asks the marketplace to predict a category
func (c *Client) RecommendCategory(ctx context.Context, name, description, imageURL string) (*Response, error) {
	body := map[string]string{
		"productName":         name,
		"productDescription":  description,
		"productImageUrl":     imageURL,
		"productBrand":        "",
		"productManufacturer": "",
	}
	return c.Do(ctx, "recommend_category", http.MethodPost, predictPath, "", body)
}

// CheckAutoCategoryAgreed asks whether the seller agreed to automatic categorization
func (c *Client) CheckAutoCategoryAgreed(ctx context.Context) (*Response, error) {
	return c.Do(ctx, "auto_category_agreed", http.MethodGet, fmt.Sprintf(autoCategoryPath, url.PathEscape(c.vendorID)), "", nil)
}

// GetCategoryTree fetches the full display category tree
func (c *Client) GetCategoryTree(ctx context.Context) (*CategoryNode, error) {
	resp, err := c.Do(ctx, "category_tree", http.MethodGet, categoryTreePath, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, rejected("category_tree", resp)
	}
	var envelope struct {
		Data CategoryNode `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode category tree: %w", err)
	}
	return &envelope.Data, nil
}

// CategoryNode is one node of the display category tree
type CategoryNode = category.TreeNode

func rejected(operation string, resp *Response) error {
	return &errors.ErrDestinationRejected{Operation: operation, Status: resp.Status, Body: string(resp.Body)}
}

// parseID accepts a numeric or string id
func parseID(raw json.RawMessage) (int64, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(bytes.Trim(bytes.TrimSpace(raw), `"`)))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	id, err := n.Int64()
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
