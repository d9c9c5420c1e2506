package service

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/domain"
)

// UploadRequest is the upload and preview entrypoint payload
type UploadRequest struct {
	URL      string          `json:"url" binding:"required"`
	Settings config.Settings `json:"settings"`
	// CategoryCode pins the requested category instead of keyword rules
	CategoryCode int64 `json:"categoryCode,omitempty"`
}

// DraftSummary is the part of a draft echoed back to callers
type DraftSummary struct {
	Title        string `json:"title"`
	Price        int    `json:"price"`
	ImageURL     string `json:"imageUrl"`
	CategoryText string `json:"categoryText,omitempty"`
	SourceURL    string `json:"sourceUrl,omitempty"`
}

// CreateSummary is the create-listing reply
type CreateSummary struct {
	Status          int             `json:"status"`
	Body            json.RawMessage `json:"body"`
	SellerProductID *int64          `json:"sellerProductId"`
}

// ApprovalSummary is the approval-request reply. Nil when the listing was
// created with auto-request on.
type ApprovalSummary struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// FollowUp is the outcome of approval polling
type FollowUp struct {
	StatusName string                   `json:"statusName"`
	Approved   bool                     `json:"approved"`
	ProductURL string                   `json:"productUrl,omitempty"`
	Cancelled  bool                     `json:"cancelled,omitempty"`
	Attempts   []domain.ApprovalAttempt `json:"attempts"`
}

// UploadResult is returned for every upload, successful or not. OK is false
// for failures and skips; Reason names the failure class.
type UploadResult struct {
	OK      bool             `json:"ok"`
	RunID   uuid.UUID        `json:"runId"`
	Status  domain.RunStatus `json:"status"`
	Skipped bool             `json:"skipped,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Error   string           `json:"error,omitempty"`

	IP         string   `json:"ip,omitempty"`
	AllowedIPs []string `json:"allowedIps,omitempty"`

	Draft        *DraftSummary              `json:"draft,omitempty"`
	FinalPrice   int                        `json:"finalPrice,omitempty"`
	Category     *domain.CategoryResolution `json:"category,omitempty"`
	OptionsUsed  []string                   `json:"optionsUsed,omitempty"`
	Strategy     string                     `json:"strategy,omitempty"`
	Create       *CreateSummary             `json:"create,omitempty"`
	Approval     *ApprovalSummary           `json:"approval,omitempty"`
	FollowUp     *FollowUp                  `json:"followUp,omitempty"`
	PayloadCheck *domain.PayloadCheck       `json:"payloadCheck,omitempty"`
	Stages       []domain.Stage             `json:"stages"`
}

// Computed is the pricing and media preview of a page
type Computed struct {
	FinalPrice        int      `json:"finalPrice"`
	Images            []string `json:"images"`
	ContentImageCount int      `json:"contentImageCount"`
	OptionsCount      int      `json:"optionsCount"`
	CategoryCode      int64    `json:"categoryCode"`
	PriceSource       string   `json:"priceSource"`
}

// PreviewResult is the extraction and pricing outcome without submission
type PreviewResult struct {
	OK       bool             `json:"ok"`
	Reason   string           `json:"reason,omitempty"`
	URL      string           `json:"url"`
	Draft    *DraftSummary    `json:"draft,omitempty"`
	Computed *Computed        `json:"computed,omitempty"`
	Options  []domain.Variant `json:"options"`
	Strategy string           `json:"strategy,omitempty"`
}

// rawJSON keeps a destination body as JSON, quoting it when it is not
func rawJSON(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
