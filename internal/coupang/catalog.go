package coupang

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jafarshop/relister/internal/domain"
)

// CategoryExists reports whether code is currently assignable
func (c *Client) CategoryExists(ctx context.Context, code int64) (bool, error) {
	resp, err := c.GetCategoryMetadata(ctx, code)
	if err != nil {
		return false, err
	}
	return resp.Status == 200, nil
}

// SuggestCategory returns the predicted category id, or 0 when there is none
func (c *Client) SuggestCategory(ctx context.Context, title, description, imageURL string) (int64, error) {
	resp, err := c.RecommendCategory(ctx, title, description, imageURL)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, nil
	}
	var envelope struct {
		Data struct {
			PredictedCategoryID json.RawMessage `json:"predictedCategoryId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return 0, nil
	}
	id, _ := parseID(envelope.Data.PredictedCategoryID)
	return id, nil
}

// AutoCategoryAgreed reports whether automatic categorization may be used.
// A 200 reply counts as agreement unless its data is explicitly false.
func (c *Client) AutoCategoryAgreed(ctx context.Context) (bool, error) {
	resp, err := c.CheckAutoCategoryAgreed(ctx)
	if err != nil {
		return false, err
	}
	if resp.Status != 200 {
		return false, nil
	}
	var envelope struct {
		Data *bool `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Data != nil {
		return *envelope.Data, nil
	}
	return true, nil
}

// ListingStatus reads data.statusName from a get-listing reply
func ListingStatus(body []byte) domain.ApprovalState {
	var envelope struct {
		Data struct {
			StatusName string `json:"statusName"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return domain.ApprovalState(envelope.Data.StatusName)
}

// ProductURL is the storefront address of an approved listing
func ProductURL(productID int64) string {
	return "https://www.coupang.com/vp/products/" + strconv.FormatInt(productID, 10)
}

// ProductID reads data.productId from a get-listing reply, set once approved
func ProductID(body []byte) (int64, bool) {
	var envelope struct {
		Data struct {
			ProductID json.RawMessage `json:"productId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Data.ProductID) == 0 {
		return 0, false
	}
	return parseID(envelope.Data.ProductID)
}
