package page

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

var (
	// 開頭的形容詞或飲食標籤，可重複剝除（"Quick & Easy Vegan Pasta"）
	leadingTagPattern     = regexp.MustCompile(`(?i)^(?:the\s+)?(?:best|easiest|easy|quick|simple|super|healthy|homemade|ultimate|perfect|delicious|classic|authentic|vegan|vegetarian|keto|paleo|gluten[- ]free|dairy[- ]free|sugar[- ]free|low[- ]carb)\b\s*(?:(?:&|\+|,|and\b)\s*)?`)
	trailingRecipePattern = regexp.MustCompile(`(?i)\s*\brecipes?\s*$`)
)

// 標題分隔符，取第一個出現位置的左側
const titleSeparators = "•|—–:"

// ExtractTitle 依序取 og:title → <title> → 第一個 <h1>，皆無則回傳空字串
func ExtractTitle(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return titleFromDocument(doc)
}

func titleFromDocument(doc *goquery.Document) string {
	var ogTitle string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		key := strings.ToLower(s.AttrOr("property", s.AttrOr("name", "")))
		if key != "og:title" {
			return true
		}
		ogTitle = common.CollapseSpaces(s.AttrOr("content", ""))
		return ogTitle == ""
	})
	if ogTitle != "" {
		return ogTitle
	}

	if t := common.CollapseSpaces(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return common.CollapseSpaces(doc.Find("h1").First().Text())
}

// CleanTitle 清理標題：切掉站名、剝除開頭形容詞、去掉結尾的 recipe(s)，首字大寫
func CleanTitle(raw string) string {
	s := DecodeEntities(raw)
	if i := strings.IndexAny(s, titleSeparators); i >= 0 {
		s = s[:i]
	}
	s = common.CollapseSpaces(s)
	base := s

	for {
		loc := leadingTagPattern.FindStringIndex(s)
		if loc == nil || loc[1] == 0 {
			break
		}
		s = s[loc[1]:]
	}
	s = trailingRecipePattern.ReplaceAllString(s, "")
	s = common.CollapseSpaces(s)

	// 全被剝光時保留切割後的原標題
	if s == "" {
		s = base
	}
	return upperFirst(s)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FallbackTitle 以 URL 產生標題：host 與 path 以長破折號相連，path 為空時只有 host
func FallbackTitle(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Hostname(), true
	}
	return u.Hostname() + " — " + path, true
}

// ResolveTitle 頁面標題清理後為空時改用 URL 標題
func ResolveTitle(rawHTML, pageURL string) string {
	if t := CleanTitle(ExtractTitle(rawHTML)); t != "" {
		return t
	}
	if t, ok := FallbackTitle(pageURL); ok {
		return t
	}
	return "Untitled recipe"
}
