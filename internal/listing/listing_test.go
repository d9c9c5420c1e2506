package listing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/pkg/errors"
)

func testDraft() *domain.ProductDraft {
	return &domain.ProductDraft{
		SourceURL:   "https://domeggook.com/1",
		Title:       "스텐 텀블러",
		Price:       10000,
		ImageURL:    "https://cdn.example.com/main.jpg",
		ContentText: `<p><img src="https://cdn.example.com/d1.jpg" /></p>`,
	}
}

func testPolicy() Policy {
	return Policy{VendorID: "A0001", VendorUserID: "seller", DeliveryCompanyCode: "CJGLS", MinFloor: 1000, DefaultStock: 10}
}

func stock(n int) *int { return &n }

func TestBuildPayload_NoVariantsIsSingleItem(t *testing.T) {
	code := int64(5555)
	p, err := BuildPayload(testDraft(), nil, domain.CategoryResolution{Requested: 1, Used: &code}, testPolicy())
	require.NoError(t, err)

	require.Len(t, p.Items, 1)
	it := p.Items[0]
	assert.Equal(t, SingleItemName, it.ItemName)
	assert.Equal(t, 10000, it.SalePrice)
	assert.Equal(t, 10000, it.OriginalPrice)
	assert.Equal(t, 10, it.MaximumBuyCount)
	assert.Equal(t, defaultAttributes(), it.Attributes)
	assert.Len(t, it.Notices, 5)
	assert.Equal(t, "https://cdn.example.com/main.jpg", it.Images[0].VendorPath)
	assert.Equal(t, testDraft().ContentText, it.Contents[0].ContentDetails[0].Content)

	require.NotNil(t, p.DisplayCategoryCode)
	assert.Equal(t, int64(5555), *p.DisplayCategoryCode)
	assert.Equal(t, DefaultOutboundShippingPlaceCode, p.OutboundShippingPlaceCode)
	assert.Equal(t, "FREE", p.DeliveryChargeType)
	assert.Equal(t, "NO_RETURN_CENTERCODE", p.ReturnCenterCode)
}

func TestBuildPayload_NegativeDeltaClampsToFloor(t *testing.T) {
	variants := []domain.Variant{
		{Label: "블랙", PriceDelta: -50000},
		{Label: "화이트  XL", PriceDelta: 1500, Stock: stock(3)},
		{Label: "레드", PriceDelta: 0, Stock: stock(0)},
	}
	p, err := BuildPayload(testDraft(), variants, domain.CategoryResolution{Requested: 1}, testPolicy())
	require.NoError(t, err)
	require.Len(t, p.Items, 3)

	assert.Equal(t, "1. 블랙", p.Items[0].ItemName)
	assert.Equal(t, 1000, p.Items[0].SalePrice)
	assert.Equal(t, "2. 화이트 XL", p.Items[1].ItemName)
	assert.Equal(t, 11500, p.Items[1].SalePrice)
	assert.Equal(t, 3, p.Items[1].MaximumBuyCount)
	assert.Equal(t, 10, p.Items[2].MaximumBuyCount, "zero stock falls back to the default")

	for _, it := range p.Items {
		assert.GreaterOrEqual(t, it.SalePrice, 1000)
		assert.Equal(t, p.Items[0].Contents, it.Contents)
	}
}

func TestBuildPayload_BasePriceOverridesDraftPrice(t *testing.T) {
	policy := testPolicy()
	policy.BasePrice = 13000
	policy.ImageURL = "http://localhost:3000/images/abc.jpg"
	policy.ContentHTML = "<p>local</p>"

	p, err := BuildPayload(testDraft(), []domain.Variant{{Label: "블랙", PriceDelta: 500}}, domain.CategoryResolution{Requested: 1}, policy)
	require.NoError(t, err)
	assert.Equal(t, 13500, p.Items[0].SalePrice)
	assert.Equal(t, "http://localhost:3000/images/abc.jpg", p.Images[0].ImageLocation)
	assert.Equal(t, "<p>local</p>", p.Items[0].Contents[0].ContentDetails[0].Content)
}

func TestBuildPayload_AttributesAreCanonicalized(t *testing.T) {
	variants := []domain.Variant{{
		Label: "블랙 / L",
		Values: []domain.OptionValue{
			{OptionName: "컬러", OptionValue: "블랙"},
			{OptionName: "Size", OptionValue: "L"},
			{OptionName: "재질", OptionValue: " "},
		},
	}}
	p, err := BuildPayload(testDraft(), variants, domain.CategoryResolution{Requested: 1}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, []domain.Attribute{
		{AttributeTypeName: "색상", AttributeValueName: "블랙"},
		{AttributeTypeName: "사이즈", AttributeValueName: "L"},
	}, p.Items[0].Attributes)
}

func TestBuildPayload_AutoCategoryOmitsCodeAndNotices(t *testing.T) {
	p, err := BuildPayload(testDraft(), nil, domain.CategoryResolution{Requested: 1234, Auto: true}, testPolicy())
	require.NoError(t, err)
	assert.Nil(t, p.DisplayCategoryCode)
	assert.Nil(t, p.Items[0].Notices)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "displayCategoryCode")
	assert.Contains(t, fields, "deliveryCompanyCode", "policy blocks are top-level")
}

func TestBuildPayload_RequiresSellerIdentity(t *testing.T) {
	_, err := BuildPayload(testDraft(), nil, domain.CategoryResolution{Requested: 1}, Policy{})
	var verr *errors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["vendorId"])
	assert.Equal(t, "required", verr.Fields["vendorUserId"])
}

func TestValidate_RejectsSubFloorItems(t *testing.T) {
	p := &domain.ListingPayload{Items: []domain.Item{{ItemName: "x", SalePrice: 990}}}
	assert.Error(t, Validate(p, 1000))
	assert.Error(t, Validate(&domain.ListingPayload{}, 1000))
}

func TestCheckPayload(t *testing.T) {
	variants := []domain.Variant{{Label: "블랙", PriceDelta: 0}, {Label: "화이트", PriceDelta: 200, Stock: stock(4)}}
	expected := ExpectedItems(testDraft(), variants, testPolicy())
	p, err := BuildPayload(testDraft(), variants, domain.CategoryResolution{Requested: 1}, testPolicy())
	require.NoError(t, err)

	check := CheckPayload(expected, p.Items)
	assert.True(t, check.Passed)
	assert.Equal(t, CheckSelf, check.Source)
	require.Len(t, check.Items, 2)
	assert.Equal(t, 10200, check.Items[1].ExpectedPrice)

	p.Items[1].SalePrice = 10190
	check = CheckPayload(expected, p.Items)
	assert.False(t, check.Passed)
	assert.False(t, check.Items[1].PriceOK)
	assert.True(t, check.Items[1].StockOK)
	assert.Len(t, check.Issues, 1)
}

func TestCheckStored_MatchesByName(t *testing.T) {
	variants := []domain.Variant{{Label: "블랙"}, {Label: "화이트", Stock: stock(4)}}
	expected := ExpectedItems(testDraft(), variants, testPolicy())

	stored := []byte(`{"code":"SUCCESS","data":{"items":[
		{"itemName":"2. 화이트","salePrice":10000,"maximumBuyCount":4},
		{"itemName":"1. 블랙","salePrice":10000,"maximumBuyCount":10}
	]}}`)
	check, err := CheckStored(expected, stored)
	require.NoError(t, err)
	assert.True(t, check.Passed)
	assert.Equal(t, CheckDestination, check.Source)

	check, err = CheckStored(expected, []byte(`{"data":{"items":[{"itemName":"1. 블랙","salePrice":10000,"maximumBuyCount":10}]}}`))
	require.NoError(t, err)
	assert.False(t, check.Passed)
	assert.Len(t, check.Issues, 2)

	_, err = CheckStored(expected, []byte("not json"))
	assert.Error(t, err)
}
