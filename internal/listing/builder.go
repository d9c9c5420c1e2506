package listing

import (
	"fmt"
	"html"
	"strings"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/pkg/errors"
)

var attributeSynonyms = map[string]string{
	"색상":    "색상",
	"컬러":    "색상",
	"색깔":    "색상",
	"color": "색상",
	"사이즈":   "사이즈",
	"크기":    "사이즈",
	"size":  "사이즈",
	"치수":    "사이즈",
}

// CanonicalAttributeName maps option-name spellings onto the destination's
// attribute vocabulary; unknown names are returned trimmed.
func CanonicalAttributeName(name string) string {
	name = strings.TrimSpace(name)
	if c, ok := attributeSynonyms[strings.ToLower(name)]; ok {
		return c
	}
	return name
}

// ExpectedItem is what one listing item must carry
type ExpectedItem struct {
	Name       string
	Price      int
	Stock      int
	Attributes []domain.Attribute
}

// ExpectedItems derives the per-item name, price and stock. Zero variants
// yield a single item at the base price; otherwise each variant is priced
// at max(floor, base + delta).
func ExpectedItems(d *domain.ProductDraft, variants []domain.Variant, policy Policy) []ExpectedItem {
	base := policy.basePrice(d)
	floor := policy.minFloor()
	def := policy.defaultStock()

	if len(variants) == 0 {
		return []ExpectedItem{{
			Name:       SingleItemName,
			Price:      max(floor, base),
			Stock:      def,
			Attributes: defaultAttributes(),
		}}
	}

	out := make([]ExpectedItem, 0, len(variants))
	for i, v := range variants {
		out = append(out, ExpectedItem{
			Name:       fmt.Sprintf("%d. %s", i+1, strings.Join(strings.Fields(v.Label), " ")),
			Price:      max(floor, base+v.PriceDelta),
			Stock:      v.StockOr(def),
			Attributes: attributes(v.Values),
		})
	}
	return out
}

func attributes(values []domain.OptionValue) []domain.Attribute {
	var out []domain.Attribute
	for _, v := range values {
		name := CanonicalAttributeName(v.OptionName)
		value := strings.TrimSpace(v.OptionValue)
		if name == "" || value == "" {
			continue
		}
		out = append(out, domain.Attribute{AttributeTypeName: name, AttributeValueName: value})
	}
	if len(out) == 0 {
		return defaultAttributes()
	}
	return out
}

func defaultAttributes() []domain.Attribute {
	return []domain.Attribute{
		{AttributeTypeName: "사이즈", AttributeValueName: "FREE"},
		{AttributeTypeName: "수량", AttributeValueName: "1개"},
	}
}

// BuildPayload assembles the create-listing body. When cat.Auto is set the
// category code and notices are left out for the destination to fill in.
func BuildPayload(d *domain.ProductDraft, variants []domain.Variant, cat domain.CategoryResolution, policy Policy) (*domain.ListingPayload, error) {
	if d == nil {
		return nil, &errors.ErrValidation{Message: "draft is required"}
	}
	missing := map[string]string{}
	if policy.VendorID == "" {
		missing["vendorId"] = "required"
	}
	if policy.VendorUserID == "" {
		missing["vendorUserId"] = "required"
	}
	if len(missing) > 0 {
		return nil, &errors.ErrValidation{Message: "seller identity is incomplete", Fields: missing}
	}

	imageURL := policy.ImageURL
	if imageURL == "" {
		imageURL = d.ImageURL
	}
	content := policy.ContentHTML
	if content == "" {
		content = d.ContentText
	}
	if strings.TrimSpace(content) == "" {
		content = "<p>" + html.EscapeString(d.Title) + "</p>"
	}

	var category *int64
	if !cat.Auto {
		code := cat.Requested
		if cat.Used != nil {
			code = *cat.Used
		}
		category = &code
	}

	var itemNotices []domain.Notice
	if !cat.Auto {
		contact := policy.Return.ContactNumber
		if contact == "" {
			contact = DefaultReturnContact().ContactNumber
		}
		itemNotices = notices(contact)
	}

	expected := ExpectedItems(d, variants, policy)
	items := make([]domain.Item, 0, len(expected))
	for _, e := range expected {
		items = append(items, domain.Item{
			ItemName:                  e.Name,
			OriginalPrice:             e.Price,
			SalePrice:                 e.Price,
			MaximumBuyCount:           e.Stock,
			MaximumBuyForPerson:       0,
			MaximumBuyForPersonPeriod: 1,
			OutboundShippingTimeDay:   1,
			TaxType:                   "TAX",
			AdultOnly:                 "EVERYONE",
			ParallelImported:          "NOT_PARALLEL_IMPORTED",
			OverseasPurchased:         "NOT_OVERSEAS_PURCHASED",
			UnitCount:                 1,
			Attributes:                e.Attributes,
			Images:                    []domain.ItemImage{{ImageOrder: 0, ImageType: "REPRESENTATION", VendorPath: imageURL}},
			Notices:                   itemNotices,
			Contents: []domain.Content{{
				ContentsType:   "TEXT",
				ContentDetails: []domain.ContentDetail{{Content: content, DetailType: "TEXT"}},
			}},
		})
	}

	payload := &domain.ListingPayload{
		VendorID:                  policy.VendorID,
		VendorUserID:              policy.VendorUserID,
		Requested:                 policy.RequestApproval,
		DisplayCategoryCode:       category,
		SellerProductName:         d.Title,
		Brand:                     unbranded,
		Manufacturer:              unbranded,
		SaleStartedAt:             saleStartedAt,
		SaleEndedAt:               saleEndedAt,
		OutboundShippingPlaceCode: policy.shippingPlace(),
		DeliveryPolicy:            policy.delivery(),
		ReturnPolicy:              policy.returns(),
		Images:                    []domain.ListingImage{{ImageOrder: 0, ImageType: "REPRESENTATION", ImageLocation: imageURL}},
		Items:                     items,
	}

	if err := Validate(payload, policy.minFloor()); err != nil {
		return nil, err
	}
	return payload, nil
}

// Validate enforces the per-item price floor and a non-empty item list
func Validate(p *domain.ListingPayload, minFloor int) error {
	if len(p.Items) == 0 {
		return &errors.ErrValidation{Message: "listing has no items"}
	}
	for _, it := range p.Items {
		if it.SalePrice < minFloor {
			return &errors.ErrValidation{
				Message: fmt.Sprintf("item %q price %d is below the floor %d", it.ItemName, it.SalePrice, minFloor),
				Fields:  map[string]string{"salePrice": "below floor"},
			}
		}
	}
	return nil
}
