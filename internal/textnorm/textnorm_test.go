package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jafarshop/relister/internal/domain"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "블랙 XL", Normalize("  블랙   XL (재고 3개) "))
	assert.Equal(t, "화이트 M", Normalize("[화이트] {M}"))
	assert.Equal(t, "", Normalize("   "))
}

func TestIsLikelyOption(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"logout is navigation", "로그아웃", false},
		{"color and size", "블랙 XL", true},
		{"empty", "", false},
		{"single rune", "S", false},
		{"too long", strings.Repeat("1", 81), false},
		{"placeholder", "선택", false},
		{"prompt", "옵션을 선택하세요", false},
		{"control word", "바로구매", false},
		{"cart inside text", "장바구니 담기 1", false},
		{"plain word without marker", "상품설명", false},
		{"dimension", "30cm", true},
		{"slash separated", "상의/하의", true},
		{"free size token", "사이즈 FREE", true},
		{"size token inside word is not a marker", "SMALL", false},
		{"exactly eighty runes", strings.Repeat("가", 79) + "1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsLikelyOption(tc.in))
		})
	}
}

func TestParseOptionValues(t *testing.T) {
	t.Run("name value pairs", func(t *testing.T) {
		got := ParseOptionValues("색상:블랙, 사이즈:XL")
		assert.Equal(t, []domain.OptionValue{
			{OptionName: "색상", OptionValue: "블랙"},
			{OptionName: "사이즈", OptionValue: "XL"},
		}, got)
	})

	t.Run("bracket with dimension and color", func(t *testing.T) {
		got := ParseOptionValues("30cm [블랙]")
		assert.Equal(t, []domain.OptionValue{
			{OptionName: "크기", OptionValue: "30cm"},
			{OptionName: "색상", OptionValue: "블랙"},
		}, got)
	})

	t.Run("slash list", func(t *testing.T) {
		got := ParseOptionValues("레드 / L")
		assert.Equal(t, []domain.OptionValue{
			{OptionName: "옵션1", OptionValue: "레드"},
			{OptionName: "옵션2", OptionValue: "L"},
		}, got)
	})

	t.Run("single value", func(t *testing.T) {
		got := ParseOptionValues("기본형")
		assert.Equal(t, []domain.OptionValue{{OptionName: "옵션", OptionValue: "기본형"}}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ParseOptionValues("  "))
	})
}

func TestParseTitlePairs_PrefersKoreanLines(t *testing.T) {
	title := "Color: Black\n색상: 블랙\n사이즈: L\n색상: 화이트"
	got := ParseTitlePairs(title)
	assert.Equal(t, []domain.OptionValue{
		{OptionName: "색상", OptionValue: "블랙"},
		{OptionName: "사이즈", OptionValue: "L"},
	}, got)
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, "색상: 블랙\n\"a\" & <b>", DecodeEntities("색상: 블랙&#10;&quot;a&quot; &amp; &lt;b&gt;"))
}
