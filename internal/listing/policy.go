// Package listing builds the destination create-listing payload from a draft
// and checks that what was built (or stored) matches what was intended.
package listing

import "github.com/jafarshop/relister/internal/domain"

const (
	// SingleItemName names the only item of a listing without variants
	SingleItemName = "단품"

	DefaultMinFloor                  = 1000
	DefaultStock                     = 10
	DefaultOutboundShippingPlaceCode = int64(24093380)

	saleStartedAt = "2020-01-01T00:00:00"
	saleEndedAt   = "2099-12-31T23:59:59"
	unbranded     = "기타"

	noticeCategory = "기타 재화"
	seeDetailPage  = "상세페이지 참조"
)

// Policy carries the seller-level settings applied to every listing
type Policy struct {
	VendorID                  string
	VendorUserID              string
	DeliveryCompanyCode       string
	OutboundShippingPlaceCode int64

	// BasePrice is the post-margin price; zero means the draft price
	BasePrice    int
	MinFloor     int
	DefaultStock int

	// ImageURL replaces the draft's source image, typically with a locally hosted copy
	ImageURL string
	// ContentHTML replaces the draft's detail markup
	ContentHTML string

	// RequestApproval asks the destination to start review on creation
	RequestApproval bool

	Return ReturnContact
}

// ReturnContact is the return address block sent with every listing
type ReturnContact struct {
	ChargeName    string
	ContactNumber string
	ZipCode       string
	Address       string
	AddressDetail string
	Charge        int
}

// DefaultReturnContact is used when the seller has no return center registered
func DefaultReturnContact() ReturnContact {
	return ReturnContact{
		ChargeName:    "반품담당자",
		ContactNumber: "010-0000-0000",
		ZipCode:       "12345",
		Address:       "서울특별시 강남구 테헤란로 1",
		AddressDetail: "101호",
		Charge:        2500,
	}
}

func (p Policy) minFloor() int {
	if p.MinFloor > 0 {
		return p.MinFloor
	}
	return DefaultMinFloor
}

func (p Policy) defaultStock() int {
	if p.DefaultStock > 0 {
		return p.DefaultStock
	}
	return DefaultStock
}

func (p Policy) basePrice(d *domain.ProductDraft) int {
	if p.BasePrice > 0 {
		return p.BasePrice
	}
	return d.Price
}

func (p Policy) shippingPlace() int64 {
	if p.OutboundShippingPlaceCode > 0 {
		return p.OutboundShippingPlaceCode
	}
	return DefaultOutboundShippingPlaceCode
}

func (p Policy) delivery() domain.DeliveryPolicy {
	return domain.DeliveryPolicy{
		DeliveryMethod:        "SEQUENCIAL",
		DeliveryCompanyCode:   p.DeliveryCompanyCode,
		DeliveryChargeType:    "FREE",
		DeliveryCharge:        0,
		FreeShipOverAmount:    0,
		RemoteAreaDeliverable: "N",
		UnionDeliveryType:     "NOT_UNION_DELIVERY",
	}
}

func (p Policy) returns() domain.ReturnPolicy {
	r := p.Return
	if r == (ReturnContact{}) {
		r = DefaultReturnContact()
	}
	return domain.ReturnPolicy{
		ReturnCenterCode:       "NO_RETURN_CENTERCODE",
		ReturnChargeName:       r.ChargeName,
		CompanyContactNumber:   r.ContactNumber,
		ReturnZipCode:          r.ZipCode,
		ReturnAddress:          r.Address,
		ReturnAddressDetail:    r.AddressDetail,
		ReturnCharge:           r.Charge,
		DeliveryChargeOnReturn: r.Charge,
		ReturnChargeOnFree:     r.Charge,
	}
}

// notices is the generic "other goods" disclosure set
func notices(contact string) []domain.Notice {
	lines := []struct{ name, content string }{
		{"품명 및 모델명", seeDetailPage},
		{"인증/허가 사항", seeDetailPage},
		{"제조국(원산지)", "대한민국"},
		{"제조자(수입자)", seeDetailPage},
		{"소비자상담 관련 전화번호", contact},
	}
	out := make([]domain.Notice, len(lines))
	for i, l := range lines {
		out[i] = domain.Notice{NoticeCategoryName: noticeCategory, NoticeCategoryDetailName: l.name, Content: l.content}
	}
	return out
}
