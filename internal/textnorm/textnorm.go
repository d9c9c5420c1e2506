// Package textnorm cleans scraped option text and decides whether a string
// looks like a real product option rather than page chrome.
package textnorm

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jafarshop/relister/internal/domain"
)

const (
	minOptionLen = 2
	maxOptionLen = 80
)

// deniedPhrases are navigation, account and site-section labels that show up
// inside option containers on the source site.
var deniedPhrases = []string{
	"로그인",
	"회원가입",
	"상품명",
	"상품번호",
	"1:1문의",
	"1:1 문의",
	"e-money",
	"e money",
	"포인트",
	"회원정보수정",
	"회원정보 수정",
	"이미지 파일 업로드",
	"도매매",
	"나까마",
	"교육센터",
	"에그돔",
	"로그아웃",
	"마이페이지",
	"주문전체목록",
	"관심상품",
	"고객센터",
	"공지사항",
	"장바구니",
	"더보기",
}

// ColorWords are color names that mark a string as an option on their own
var ColorWords = []string{
	"블랙", "화이트", "레드", "블루", "그린", "핑크", "베이지", "브라운",
	"그레이", "옐로", "퍼플", "네이비", "실버", "골드", "투명", "클리어",
}

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	parentheticRe  = regexp.MustCompile(`\(.*?\)`)
	bracketCharsRe = regexp.MustCompile(`[\[\]{}]`)

	placeholderRe = regexp.MustCompile(`(?i)^(선택|옵션|상품옵션|닫기)$`)
	promptRe      = regexp.MustCompile(`(?i)선택\s*하세요|옵션\s*선택|전체\s*옵션\s*보기`)
	controlRe     = regexp.MustCompile(`(?i)^(구매|바로구매|장바구니|주문|취소|확인|닫기|저장|검색)$`)

	digitRe     = regexp.MustCompile(`[0-9]`)
	sizeTokenRe = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])(XXXL|XXL|XL|L|M|S|FREE|Free|F)(?:$|[^A-Za-z0-9_])`)
	separatorRe = regexp.MustCompile(`[:：/\-+\[\]()]`)

	pairSplitRe  = regexp.MustCompile(`[,|]`)
	colonSplitRe = regexp.MustCompile(`[:：]`)
	bracketRe    = regexp.MustCompile(`^(.+?)\s*[\[(](.+?)[\])]\s*$`)
	dimensionRe  = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(cm|mm|m|인치|inch)`)
	hangulRe     = regexp.MustCompile(`[가-힣]`)
)

// Normalize collapses whitespace, strips parenthetical annotations and
// bracket characters, and trims the result.
func Normalize(raw string) string {
	s := whitespaceRe.ReplaceAllString(raw, " ")
	s = parentheticRe.ReplaceAllString(s, "")
	s = bracketCharsRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// IsDenied reports whether text contains a denylisted navigation or account phrase
func IsDenied(text string) bool {
	for _, phrase := range deniedPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// IsLikelyOption reports whether text looks like a product option value.
// It prefers dropping a real option over accepting page chrome.
func IsLikelyOption(text string) bool {
	t := Normalize(text)
	if t == "" {
		return false
	}
	n := utf8.RuneCountInString(t)
	if n < minOptionLen || n > maxOptionLen {
		return false
	}
	if placeholderRe.MatchString(t) || promptRe.MatchString(t) {
		return false
	}
	if IsDenied(t) {
		return false
	}
	if controlRe.MatchString(t) {
		return false
	}
	if HasColorWord(t) {
		return true
	}
	return hasMarker(t)
}

// HasColorWord reports whether s contains a known color name
func HasColorWord(s string) bool {
	for _, c := range ColorWords {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

func hasMarker(t string) bool {
	return digitRe.MatchString(t) || sizeTokenRe.MatchString(t) || separatorRe.MatchString(t)
}

// ParseOptionValues recovers option name/value pairs from a variant label.
// Recognized shapes, in order: "name:value, name:value", "left [right]",
// "a / b / c". Anything else becomes a single 옵션 value.
func ParseOptionValues(label string) []domain.OptionValue {
	text := strings.TrimSpace(label)
	if text == "" {
		return nil
	}

	var pairs []domain.OptionValue
	for _, part := range pairSplitRe.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := colonSplitRe.Split(part, -1)
		if len(kv) != 2 {
			continue
		}
		name, value := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if name != "" && value != "" {
			pairs = append(pairs, domain.OptionValue{OptionName: name, OptionValue: value})
		}
	}
	if len(pairs) > 0 {
		return pairs
	}

	if m := bracketRe.FindStringSubmatch(text); m != nil {
		left, right := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		leftName := "옵션1"
		if dimensionRe.MatchString(left) {
			leftName = "크기"
		}
		rightName := "옵션2"
		if HasColorWord(right) {
			rightName = "색상"
		}
		return []domain.OptionValue{
			{OptionName: leftName, OptionValue: left},
			{OptionName: rightName, OptionValue: right},
		}
	}

	var parts []string
	for _, p := range strings.Split(text, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 2 {
		out := make([]domain.OptionValue, 0, len(parts))
		for i, p := range parts {
			out = append(out, domain.OptionValue{OptionName: fmt.Sprintf("옵션%d", i+1), OptionValue: p})
		}
		return out
	}

	return []domain.OptionValue{{OptionName: "옵션", OptionValue: text}}
}

// ParseTitlePairs reads "name:value" lines from a tooltip title attribute.
// Korean lines win over others when both exist; the first value per name is kept.
func ParseTitlePairs(title string) []domain.OptionValue {
	if title == "" {
		return nil
	}
	title = strings.ReplaceAll(title, "\r", "")
	var withColon, korean []string
	for _, line := range strings.Split(title, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		withColon = append(withColon, line)
		if hangulRe.MatchString(line) {
			korean = append(korean, line)
		}
	}
	use := withColon
	if len(korean) > 0 {
		use = korean
	}

	var pairs []domain.OptionValue
	seen := make(map[string]bool)
	for _, line := range use {
		idx := strings.Index(line, ":")
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" || value == "" || seen[name] {
			continue
		}
		seen[name] = true
		pairs = append(pairs, domain.OptionValue{OptionName: name, OptionValue: value})
	}
	return pairs
}

// DecodeEntities unescapes HTML entities in attribute text
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// CollapseSpace collapses runs of whitespace and trims
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
