package pricing

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/relister/internal/domain"
)

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestFloorToUnit(t *testing.T) {
	assert.Equal(t, 9990, FloorToUnit(9997, 10))
	assert.Equal(t, 96500, FloorToUnit(96500, 10))
	assert.Equal(t, 1234, FloorToUnit(1234, 1))

	for _, p := range []int{0, 1, 9, 10, 11, 999, 1005, 123457} {
		f := FloorToUnit(p, 10)
		assert.LessOrEqual(t, f, p)
		assert.Greater(t, f+10, p)
	}
}

func TestResolve_DisplayedPriceBelowMinimum(t *testing.T) {
	doc := mustDoc(t, `<html><body><span class="lItemPrice">650원</span></body></html>`)
	res := Resolve(doc, nil)
	assert.Equal(t, 650, res.Raw)
	assert.Equal(t, 1000, res.Price)
	assert.Equal(t, SourceDisplayed, res.Source)
}

func TestResolve_QuantityTierTable(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<span class="lItemPrice">87,000원</span>
		<table>
			<tr><th>수량</th><th>단가</th></tr>
			<tr><td>50개 이상</td><td>91,500원</td></tr>
			<tr><td>1개 이상</td><td>96,500원</td></tr>
		</table></body></html>`)
	res := Resolve(doc, nil)
	assert.Equal(t, []domain.PriceTier{{MinQty: 1, UnitPrice: 96500}, {MinQty: 50, UnitPrice: 91500}}, res.Tiers)
	assert.Equal(t, 96500, res.Price)
	assert.Equal(t, SourceTier, res.Source)
}

func TestResolveFrom_Precedence(t *testing.T) {
	tiers := []domain.PriceTier{{MinQty: 10, UnitPrice: 5000}, {MinQty: 100, UnitPrice: 4000}}

	res := ResolveFrom(Inputs{VariantPrices: []int{12345, 11111}, Tiers: tiers, DisplayedPrice: 9000})
	assert.Equal(t, SourceVariants, res.Source)
	assert.Equal(t, 11110, res.Price)

	res = ResolveFrom(Inputs{Tiers: tiers, DisplayedPrice: 9000})
	assert.Equal(t, SourceTier, res.Source)
	assert.Equal(t, 5000, res.Price, "lowest minQty tier when none starts at 1")

	res = ResolveFrom(Inputs{PageText: "판매가 23,456 원 배송비 3,000원"})
	assert.Equal(t, SourceText, res.Source)
	assert.Equal(t, 23450, res.Price)

	res = ResolveFrom(Inputs{})
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, DefaultPrice, res.Price)
}

func TestResolveFrom_AlwaysAtLeastMinimum(t *testing.T) {
	for _, raw := range []int{1, 10, 650, 999, 1009} {
		res := ResolveFrom(Inputs{DisplayedPrice: raw})
		assert.GreaterOrEqual(t, res.Price, MinPrice)
	}
}

func TestParseTiers_TextLayouts(t *testing.T) {
	linePair := mustDoc(t, `<html><body><div>수량(개) 1~ 50~ 100~</div><div>단가(원) 96,500 91,500 87,000</div></body></html>`)
	assert.Equal(t, []domain.PriceTier{
		{MinQty: 1, UnitPrice: 96500},
		{MinQty: 50, UnitPrice: 91500},
		{MinQty: 100, UnitPrice: 87000},
	}, ParseTiers(linePair))

	inline := mustDoc(t, `<html><body><p>수량별가격</p><p>10개 이상 : 5,000원</p><p>1개 이상 : 5,500원</p><p>10개 이상 : 5,000원</p></body></html>`)
	assert.Equal(t, []domain.PriceTier{
		{MinQty: 1, UnitPrice: 5500},
		{MinQty: 10, UnitPrice: 5000},
	}, ParseTiers(inline))
}

func TestApplyMargin(t *testing.T) {
	assert.Equal(t, 10000, ApplyMargin(10000, DefaultMargin()))
	assert.Equal(t, 13500, ApplyMargin(10000, Margin{Rate: 0.3, Add: 500, Floor: 1000, RoundUnit: 10}))
	assert.Equal(t, 1000, ApplyMargin(500, DefaultMargin()))
	assert.Equal(t, 12000, ApplyMargin(10000, Margin{Rate: 0.5, Floor: 1000, Max: 12000, RoundUnit: 10}))
	assert.Equal(t, 12345, ApplyMargin(12345, Margin{Floor: 1000, RoundUnit: 1}))
}
