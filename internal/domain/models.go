package domain

import (
	"time"

	"github.com/google/uuid"
)

// OptionValue is one labeled attribute of a variant (e.g. 색상=블랙)
type OptionValue struct {
	OptionName  string `json:"optionName"`
	OptionValue string `json:"optionValue"`
}

// Variant is one purchasable option combination on the source page
type Variant struct {
	Label      string        `json:"label"`
	PriceDelta int           `json:"priceDelta"` // relative to the draft base price, may be negative
	Stock      *int          `json:"stock"`
	Values     []OptionValue `json:"values"`
}

// StockOr returns the variant stock when positive, otherwise def
func (v Variant) StockOr(def int) int {
	if v.Stock != nil && *v.Stock > 0 {
		return *v.Stock
	}
	return def
}

// PriceTier is a quantity-break price (buy MinQty+, pay UnitPrice per unit)
type PriceTier struct {
	MinQty    int `json:"minQty"`
	UnitPrice int `json:"unitPrice"`
}

// ProductDraft is the validated representation of one source product.
// Built once per extraction run and never mutated afterwards.
type ProductDraft struct {
	SourceURL    string    `json:"sourceUrl"`
	Title        string    `json:"title"`
	Price        int       `json:"price"`
	ImageURL     string    `json:"imageUrl"`
	ContentText  string    `json:"contentText"`
	CategoryText string    `json:"categoryText"`
	Options      []Variant `json:"options"`
}

// CategoryResolution records which destination category was requested and used.
// Used is nil only when automatic category assignment was confirmed eligible.
type CategoryResolution struct {
	Requested int64  `json:"requested"`
	Used      *int64 `json:"used"`
	Auto      bool   `json:"auto"`
}

// DeliveryPolicy is the shipping block shared by every listing
type DeliveryPolicy struct {
	DeliveryMethod        string `json:"deliveryMethod"`
	DeliveryCompanyCode   string `json:"deliveryCompanyCode"`
	DeliveryChargeType    string `json:"deliveryChargeType"`
	DeliveryCharge        int    `json:"deliveryCharge"`
	FreeShipOverAmount    int    `json:"freeShipOverAmount"`
	RemoteAreaDeliverable string `json:"remoteAreaDeliverable"`
	UnionDeliveryType     string `json:"unionDeliveryType"`
}

// ReturnPolicy is the return block shared by every listing
type ReturnPolicy struct {
	ReturnCenterCode       string `json:"returnCenterCode"`
	ReturnChargeName       string `json:"returnChargeName"`
	CompanyContactNumber   string `json:"companyContactNumber"`
	ReturnZipCode          string `json:"returnZipCode"`
	ReturnAddress          string `json:"returnAddress"`
	ReturnAddressDetail    string `json:"returnAddressDetail"`
	ReturnCharge           int    `json:"returnCharge"`
	DeliveryChargeOnReturn int    `json:"deliveryChargeOnReturn"`
	ReturnChargeOnFree     int    `json:"returnChargeOnFree"`
}

// ListingPayload is the destination create-listing body.
// Policy blocks are embedded so they serialize as top-level fields.
type ListingPayload struct {
	VendorID                  string `json:"vendorId"`
	VendorUserID              string `json:"vendorUserId"`
	Requested                 bool   `json:"requested"`
	DisplayCategoryCode       *int64 `json:"displayCategoryCode,omitempty"`
	SellerProductName         string `json:"sellerProductName"`
	Brand                     string `json:"brand"`
	Manufacturer              string `json:"manufacturer"`
	SaleStartedAt             string `json:"saleStartedAt"`
	SaleEndedAt               string `json:"saleEndedAt"`
	OutboundShippingPlaceCode int64  `json:"outboundShippingPlaceCode"`
	DeliveryPolicy
	ReturnPolicy
	Images []ListingImage `json:"images"`
	Items  []Item         `json:"items"`
}

// ListingImage is a top-level listing image
type ListingImage struct {
	ImageOrder    int    `json:"imageOrder"`
	ImageType     string `json:"imageType"`
	ImageLocation string `json:"imageLocation"`
}

// Item is one purchasable SKU inside a listing
type Item struct {
	ItemName                  string      `json:"itemName"`
	OriginalPrice             int         `json:"originalPrice"`
	SalePrice                 int         `json:"salePrice"`
	MaximumBuyCount           int         `json:"maximumBuyCount"`
	MaximumBuyForPerson       int         `json:"maximumBuyForPerson"`
	MaximumBuyForPersonPeriod int         `json:"maximumBuyForPersonPeriod"`
	OutboundShippingTimeDay   int         `json:"outboundShippingTimeDay"`
	TaxType                   string      `json:"taxType"`
	AdultOnly                 string      `json:"adultOnly"`
	ParallelImported          string      `json:"parallelImported"`
	OverseasPurchased         string      `json:"overseasPurchased"`
	UnitCount                 int         `json:"unitCount"`
	Attributes                []Attribute `json:"attributes"`
	Images                    []ItemImage `json:"images"`
	Notices                   []Notice    `json:"notices,omitempty"`
	Contents                  []Content   `json:"contents"`
}

// Attribute is a destination option attribute (e.g. 색상=블랙)
type Attribute struct {
	AttributeTypeName  string `json:"attributeTypeName"`
	AttributeValueName string `json:"attributeValueName"`
}

// ItemImage is an item-level image reference
type ItemImage struct {
	ImageOrder int    `json:"imageOrder"`
	ImageType  string `json:"imageType"`
	VendorPath string `json:"vendorPath"`
}

// Notice is one product information disclosure line
type Notice struct {
	NoticeCategoryName       string `json:"noticeCategoryName"`
	NoticeCategoryDetailName string `json:"noticeCategoryDetailName"`
	Content                  string `json:"content"`
}

// Content is one detail-page content block
type Content struct {
	ContentsType   string          `json:"contentsType"`
	ContentDetails []ContentDetail `json:"contentDetails"`
}

// ContentDetail holds the markup of a content block
type ContentDetail struct {
	Content    string `json:"content"`
	DetailType string `json:"detailType"`
}

// ItemCheck compares what an item should carry with what it carries
type ItemCheck struct {
	Name          string `json:"name"`
	ExpectedPrice int    `json:"expectedPrice"`
	ActualPrice   int    `json:"actualPrice"`
	ExpectedStock int    `json:"expectedStock"`
	ActualStock   int    `json:"actualStock"`
	PriceOK       bool   `json:"priceOk"`
	StockOK       bool   `json:"stockOk"`
}

// PayloadCheck is a transient verification record; never persisted
type PayloadCheck struct {
	Source string      `json:"source"` // "self" or "destination"
	Items  []ItemCheck `json:"items"`
	Passed bool        `json:"passed"`
	Issues []string    `json:"issues,omitempty"`
}

// ApprovalAttempt is one poll of the destination listing status
type ApprovalAttempt struct {
	Attempt    int           `json:"attempt"`
	Status     ApprovalState `json:"status"`
	HTTPStatus int           `json:"httpStatus"`
	History    string        `json:"history,omitempty"`
	At         time.Time     `json:"at"`
}

// UploadRun is the in-memory state of one orchestrator call
type UploadRun struct {
	ID              uuid.UUID         `json:"id"`
	Status          RunStatus         `json:"status"`
	Stage           Stage             `json:"stage"`
	Stages          []Stage           `json:"stages"`
	SellerEntityID  *int64            `json:"sellerEntityId"`
	ApprovalHistory []ApprovalAttempt `json:"approvalHistory"`
	StartedAt       time.Time         `json:"startedAt"`
}

// UploadRecord is the persisted audit row of a finished run
type UploadRecord struct {
	ID              uuid.UUID
	SourceURL       string
	Title           string
	Status          RunStatus
	Reason          *string
	SellerProductID *int64
	FinalPrice      int
	CategoryCode    *int64
	OptionCount     int
	Strategy        string
	ApprovalStatus  *string
	CreatedAt       time.Time
}
