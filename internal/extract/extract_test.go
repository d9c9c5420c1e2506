package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/source"
)

type fakeDoc struct {
	url       string
	markup    string
	doc       *goquery.Document
	evalJSON  string
	fetchBody string
	fetchURLs []string
}

func newFakeDoc(t *testing.T, url, markup string) *fakeDoc {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return &fakeDoc{url: url, markup: markup, doc: doc}
}

func (d *fakeDoc) URL() string              { return d.url }
func (d *fakeDoc) HTML() string             { return d.markup }
func (d *fakeDoc) Query() *goquery.Document { return d.doc }

func (d *fakeDoc) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	if d.evalJSON == "" {
		return nil, source.ErrEvaluateUnsupported
	}
	return json.RawMessage(d.evalJSON), nil
}

func (d *fakeDoc) FetchWithinSession(ctx context.Context, url string, headers map[string]string) (*source.Response, error) {
	d.fetchURLs = append(d.fetchURLs, url)
	if d.fetchBody == "" {
		return &source.Response{Status: 404}, nil
	}
	return &source.Response{Status: 200, Body: []byte(d.fetchBody)}, nil
}

type countingStrategy struct {
	name   string
	labels []string
	err    error
	calls  int
}

func (s *countingStrategy) Name() string { return s.name }

func (s *countingStrategy) TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error) {
	s.calls++
	out := make([]domain.Variant, 0, len(s.labels))
	for _, l := range s.labels {
		out = append(out, domain.Variant{Label: l})
	}
	return out, s.err
}

func fiveStrategies(first []string) []*countingStrategy {
	return []*countingStrategy{
		{name: "s1", labels: first},
		{name: "s2", labels: []string{"화이트 M"}},
		{name: "s3", labels: []string{"레드 L"}},
		{name: "s4", labels: []string{"블루 S"}},
		{name: "s5", labels: []string{"그린 XL"}},
	}
}

func chainOf(ss []*countingStrategy) *Chain {
	strategies := make([]Strategy, len(ss))
	for i, s := range ss {
		strategies[i] = s
	}
	return NewChain(zap.NewNop(), strategies...)
}

func TestChain_FirstSuccessStopsTheChain(t *testing.T) {
	ss := fiveStrategies([]string{"블랙 XL"})
	res := chainOf(ss).Extract(context.Background(), newFakeDoc(t, "https://domeggook.com/1", "<html></html>"), 10000)

	assert.Equal(t, "s1", res.Strategy)
	require.Len(t, res.Variants, 1)
	assert.Equal(t, "블랙 XL", res.Variants[0].Label)
	assert.Equal(t, 1, ss[0].calls)
	for _, s := range ss[1:] {
		assert.Equal(t, 0, s.calls, s.name)
	}
}

func TestChain_PollutedResultFallsThrough(t *testing.T) {
	ss := fiveStrategies([]string{"로그아웃", "장바구니"})
	res := chainOf(ss).Extract(context.Background(), newFakeDoc(t, "https://domeggook.com/1", "<html></html>"), 10000)

	assert.Equal(t, "s2", res.Strategy)
	assert.Equal(t, 1, ss[1].calls)
	assert.Equal(t, 0, ss[2].calls)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, 2, res.Attempts[0].Found)
	assert.Equal(t, 0, res.Attempts[0].Kept)
}

func TestChain_ErrorsFallThroughAndEmptyIsValid(t *testing.T) {
	ss := []*countingStrategy{
		{name: "broken", err: errors.New("boom")},
		{name: "empty"},
	}
	res := chainOf(ss).Extract(context.Background(), newFakeDoc(t, "https://domeggook.com/1", "<html></html>"), 10000)

	assert.Equal(t, StrategyNone, res.Strategy)
	assert.NotNil(t, res.Variants)
	assert.Empty(t, res.Variants)
	assert.Equal(t, "boom", res.Attempts[0].Error)
	assert.Equal(t, 1, ss[1].calls)
}

func TestUnique_SuffixesCollisionsWithoutDropping(t *testing.T) {
	in := []domain.Variant{
		{Label: "블랙  XL", PriceDelta: 0},
		{Label: "블랙 XL", PriceDelta: 0},
		{Label: "블랙 XL", PriceDelta: 1000},
		{Label: "블랙 xl", PriceDelta: 0},
	}
	out := Unique(in)
	require.Len(t, out, 4)
	assert.Equal(t, "블랙 XL", out[0].Label)
	assert.Equal(t, "블랙 XL (2)", out[1].Label)
	assert.Equal(t, "블랙 XL", out[2].Label)
	assert.Equal(t, "블랙 xl (3)", out[3].Label)
}

func TestUnique_SuffixSkipsLabelsAlreadyPresent(t *testing.T) {
	out := Unique([]domain.Variant{
		{Label: "블랙 (2)"},
		{Label: "블랙"},
		{Label: "블랙"},
		{Label: "블랙"},
	})
	labels := make([]string, 0, len(out))
	for _, v := range out {
		labels = append(labels, v.Label)
	}
	assert.Equal(t, []string{"블랙 (2)", "블랙", "블랙 (3)", "블랙 (4)"}, labels)
}

func TestRuntimeStateStrategy(t *testing.T) {
	doc := newFakeDoc(t, "https://domeggook.com/1", "<html></html>")
	doc.evalJSON = `{
		"set": {"0": {"name": "색상", "opts": ["블랙", "화이트"]}, "1": {"name": "사이즈", "opts": {"0": "M", "1": "L"}}},
		"data": {
			"0_0": {"name": "블랙/M", "domPrice": 0, "qty": 5, "hid": 0},
			"0_1": {"name": "블랙/L", "domPrice": "500", "qty": "3"},
			"1_0": {"name": "화이트/M", "domPrice": -200, "qty": 0, "hid": 1}
		}
	}`

	got, err := (&RuntimeStateStrategy{}).TryExtract(context.Background(), doc, 10000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "블랙/M", got[0].Label)
	assert.Equal(t, []domain.OptionValue{{OptionName: "색상", OptionValue: "블랙"}, {OptionName: "사이즈", OptionValue: "M"}}, got[0].Values)
	assert.Equal(t, 500, got[1].PriceDelta)
	assert.Equal(t, 3, *got[1].Stock)
}

func TestRuntimeStateStrategy_UnsupportedSessionIsEmpty(t *testing.T) {
	got, err := (&RuntimeStateStrategy{}).TryExtract(context.Background(), newFakeDoc(t, "u", "<html></html>"), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInlineScriptStrategy(t *testing.T) {
	markup := `<html><head><script>
		var lItem = {};
		lItem.optController = new ItemOptionController({
			type: "combo",
			data: {"orgSet": {"0": {"name": "색상", "opts": ["네이비 {기본}", "베이지"]}},
			       "data": {"0": {"name": "네이비", "domPrice": 0, "qty": 10},
			                "1": {"name": "베이지 \"한정\"", "domPrice": 1000, "qty": 2}}},
			el: "#opt"
		});
	</script></head><body></body></html>`

	got, err := (&InlineScriptStrategy{}).TryExtract(context.Background(), newFakeDoc(t, "https://domeggook.com/1", markup), 10000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "네이비", got[0].Label)
	assert.Equal(t, []domain.OptionValue{{OptionName: "색상", OptionValue: "네이비 {기본}"}}, got[0].Values)
	assert.Equal(t, `베이지 "한정"`, got[1].Label)
	assert.Equal(t, 1000, got[1].PriceDelta)
}

func TestTableStrategy(t *testing.T) {
	markup := `<html><body>
		<div class="optlist" krwstr="12,500원">
			<span title="Color: Black&#10;색상: 블랙&#10;사이즈: L">i</span>
			<div class="wid150">L</div><em>120개 판매 가능</em>
		</div>
		<div class="optlist" krwstr="11,000원"><div class="wid150">90cm [화이트] (필수)</div><em>7부 판매 가능</em></div>
		<div class="optlist" krwstr="11,000원"><div class="wid150">90cm [화이트] (필수)</div></div>
		<div class="optlist">가격 문의</div>
	</body></html>`
	doc := newFakeDoc(t, "https://1688.domeggook.com/1", markup)

	rows := ParseTableRows(doc.Query())
	require.Len(t, rows, 2)
	assert.Equal(t, []int{12500, 11000}, Prices(rows))

	got, err := (&TableStrategy{}).TryExtract(context.Background(), doc, 11000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "블랙 / L", got[0].Label)
	assert.Equal(t, 1500, got[0].PriceDelta)
	assert.Equal(t, 120, *got[0].Stock)
	assert.Equal(t, "90cm [화이트]", got[1].Label)
	assert.Equal(t, 7, *got[1].Stock)
	assert.Equal(t, []domain.OptionValue{{OptionName: "크기", OptionValue: "90cm"}, {OptionName: "색상", OptionValue: "화이트"}}, got[1].Values)
}

func TestPopupStrategy(t *testing.T) {
	doc := newFakeDoc(t, "https://domeggook.com/55501?from=x", "<html></html>")
	doc.fetchBody = `<html><body><select>
		<option>옵션을 선택하세요</option>
		<option>01. 블랙 (재고 3)</option>
		<option>화이트 M</option>
		<option>화이트 M</option>
	</select></body></html>`

	got, err := (&PopupStrategy{}).TryExtract(context.Background(), doc, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"https://domeggook.com/main/popup/item/popup_itemOptionView.php?no=55501&market=dome"}, doc.fetchURLs)
	labels := make([]string, len(got))
	for i, v := range got {
		labels[i] = v.Label
	}
	assert.Equal(t, []string{"01. 블랙", "화이트 M"}, labels)
}

func TestParsePopup_TextFallback(t *testing.T) {
	labels, err := ParsePopup([]byte(`<html><body><ul><li>1. 레드 / 95</li><li>2) 로그인</li><li>3 블루 100</li></ul><script>var a="블랙 XL";</script></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"레드 / 95", "블루 100"}, labels)
}

func TestPageTextStrategy(t *testing.T) {
	markup := `<html><body>
		<div id="header"><a href="/login">로그인</a></div>
		<form id="itemInfo">
			<select name="item_opt">
				<option>선택</option>
				<option>블랙 230mm</option>
				<option>화이트 240mm</option>
			</select>
			<ul class="opt_layer"><li>그레이 250mm</li><li>고객센터</li></ul>
		</form>
	</body></html>`
	got, err := (&PageTextStrategy{}).TryExtract(context.Background(), newFakeDoc(t, "https://domeggook.com/1", markup), 0)
	require.NoError(t, err)
	labels := make([]string, len(got))
	for i, v := range got {
		labels[i] = v.Label
	}
	assert.Equal(t, []string{"블랙 230mm", "화이트 240mm", "그레이 250mm"}, labels)
}
