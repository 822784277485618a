package page

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

// 各標記來源的固定訊號權重
const (
	SignalStructuredData = 100
	SignalOpenGraph      = 90
	SignalTwitterCard    = 80
	SignalLinkItemprop   = 70
	SignalSrcset         = 60
	SignalSrc            = 55
	SignalBackground     = 50
)

const proximityDepth = 6

var (
	backgroundURLPattern = regexp.MustCompile(`(?i)background(?:-image)?\s*:[^;]*?url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
	penaltyKeywords      = []string{"logo", "sprite", "icon", "badge"}
	bonusKeywords        = []string{"hero", "main", "recipe"}
	lazySrcAttrs         = []string{"src", "data-src", "data-lazy-src", "data-original", "data-lazy", "data-url"}
)

// ImageCandidate 候選主圖，僅在單頁選圖期間存在
type ImageCandidate struct {
	URL      string  `json:"url"`
	Signal   int     `json:"signal"`
	Width    *int    `json:"declared_width,omitempty"`
	Height   *int    `json:"declared_height,omitempty"`
	DOMBonus int     `json:"dom_bonus"`
	SizeHint float64 `json:"size_hint"`
	Score    float64 `json:"score"`
	node     *goquery.Selection
}

// SelectHeroImage 回傳最佳主圖 URL
func SelectHeroImage(rawHTML, pageURL string) (string, bool) {
	ranked, err := RankImageCandidates(rawHTML, pageURL)
	if err != nil || len(ranked) == 0 {
		return "", false
	}
	return ranked[0].URL, true
}

// RankImageCandidates 收集、過濾、評分並排序候選圖片
func RankImageCandidates(rawHTML, pageURL string) ([]ImageCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	base, err := effectiveBase(doc, pageURL)
	if err != nil {
		return nil, err
	}

	c := &collector{base: base, seen: map[string]bool{}}
	c.structuredData(doc)
	c.metaTags(doc)
	c.linkAndItemprop(doc)
	c.domImages(doc)
	c.backgrounds(doc)

	title := strings.ToLower(CleanTitle(titleFromDocument(doc)))
	for i := range c.out {
		scoreCandidate(&c.out[i], title)
	}
	sort.SliceStable(c.out, func(i, j int) bool {
		return c.out[i].Score > c.out[j].Score
	})
	return c.out, nil
}

// effectiveBase 有 <base href> 時以其為基準，否則使用頁面 URL
func effectiveBase(doc *goquery.Document, pageURL string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return nil, err
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}
	return base, nil
}

type collector struct {
	base *url.URL
	seen map[string]bool
	out  []ImageCandidate
}

// add 解析為絕對 URL、過濾不合理者並依絕對 URL 去重（先加入者保留）
func (c *collector) add(raw string, signal int, w, h *int, node *goquery.Selection) {
	raw = strings.TrimSpace(DecodeEntities(raw))
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return
	}
	u, err := c.base.Parse(raw)
	if err != nil {
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".svg") {
		return
	}
	abs := u.String()
	if c.seen[abs] {
		return
	}
	c.seen[abs] = true
	c.out = append(c.out, ImageCandidate{URL: abs, Signal: signal, Width: w, Height: h, node: node})
}

// structuredData 取 JSON-LD 中 Recipe 的 image
func (c *collector) structuredData(doc *goquery.Document) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw, err := common.RecoverJSON(s.Text())
		if err != nil {
			return
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return
		}
		for _, ref := range recipeImages(v) {
			c.add(ref.url, SignalStructuredData, ref.width, ref.height, nil)
		}
	})
}

type imageRef struct {
	url           string
	width, height *int
}

func recipeImages(v interface{}) []imageRef {
	var out []imageRef
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			out = append(out, recipeImages(item)...)
		}
	case map[string]interface{}:
		if isRecipeType(t["@type"]) {
			out = append(out, imageRefs(t["image"])...)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			if k != "image" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := t[k]
			switch child.(type) {
			case []interface{}, map[string]interface{}:
				out = append(out, recipeImages(child)...)
			}
		}
	}
	return out
}

func isRecipeType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Recipe")
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Recipe") {
				return true
			}
		}
	}
	return false
}

func imageRefs(v interface{}) []imageRef {
	switch t := v.(type) {
	case string:
		return []imageRef{{url: t}}
	case []interface{}:
		var out []imageRef
		for _, item := range t {
			out = append(out, imageRefs(item)...)
		}
		return out
	case map[string]interface{}:
		u, _ := t["url"].(string)
		if u == "" {
			u, _ = t["contentUrl"].(string)
		}
		if u == "" {
			return nil
		}
		return []imageRef{{url: u, width: jsonDimension(t["width"]), height: jsonDimension(t["height"])}}
	}
	return nil
}

// jsonDimension 接受數字、"1200"、"1200px" 或 {"value": 1200}
func jsonDimension(v interface{}) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		return parseDimension(t)
	case map[string]interface{}:
		return jsonDimension(t["value"])
	}
	return nil
}

func parseDimension(s string) *int {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "px")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// metaTags Open Graph 與 Twitter Card
func (c *collector) metaTags(doc *goquery.Document) {
	var ogURLs, twitterURLs []string
	var ogW, ogH *int
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := strings.ToLower(s.AttrOr("property", s.AttrOr("name", "")))
		content := s.AttrOr("content", "")
		switch key {
		case "og:image", "og:image:url", "og:image:secure_url":
			ogURLs = append(ogURLs, content)
		case "og:image:width":
			ogW = parseDimension(content)
		case "og:image:height":
			ogH = parseDimension(content)
		case "twitter:image", "twitter:image:src":
			twitterURLs = append(twitterURLs, content)
		}
	})
	for _, u := range ogURLs {
		c.add(u, SignalOpenGraph, ogW, ogH, nil)
	}
	for _, u := range twitterURLs {
		c.add(u, SignalTwitterCard, nil, nil, nil)
	}
}

func (c *collector) linkAndItemprop(doc *goquery.Document) {
	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
			if rel == "image_src" {
				c.add(s.AttrOr("href", ""), SignalLinkItemprop, nil, nil, nil)
			}
		}
	})
	doc.Find(`[itemprop="image"]`).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"content", "src", "href"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				c.add(v, SignalLinkItemprop, attrDimension(s, "width"), attrDimension(s, "height"), bodyNode(s))
				return
			}
		}
	})
}

// domImages <img> 與 <picture><source>：先 srcset 再 src / lazy-src
func (c *collector) domImages(doc *goquery.Document) {
	doc.Find("img, picture source").Each(func(_ int, s *goquery.Selection) {
		w, h := attrDimension(s, "width"), attrDimension(s, "height")
		node := bodyNode(s)
		for _, attr := range []string{"srcset", "data-srcset"} {
			if best := bestFromSrcset(s.AttrOr(attr, "")); best != "" {
				c.add(best, SignalSrcset, w, h, node)
				break
			}
		}
		if goquery.NodeName(s) == "source" {
			return
		}
		for _, attr := range lazySrcAttrs {
			if v := s.AttrOr(attr, ""); v != "" && !strings.HasPrefix(v, "data:") {
				c.add(v, SignalSrc, w, h, node)
				break
			}
		}
	})
}

// bestFromSrcset 取寬度（或像素密度）描述最大的一項
func bestFromSrcset(srcset string) string {
	best, bestVal := "", -1.0
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		val := 1.0
		if len(fields) > 1 {
			d := strings.ToLower(fields[1])
			if n, err := strconv.ParseFloat(strings.TrimRight(d, "wx"), 64); err == nil {
				val = n
			}
		}
		if val > bestVal {
			best, bestVal = fields[0], val
		}
	}
	return best
}

func (c *collector) backgrounds(doc *goquery.Document) {
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		if m := backgroundURLPattern.FindStringSubmatch(s.AttrOr("style", "")); m != nil {
			c.add(m[1], SignalBackground, nil, nil, bodyNode(s))
		}
	})
}

func attrDimension(s *goquery.Selection, attr string) *int {
	v, ok := s.Attr(attr)
	if !ok {
		return nil
	}
	return parseDimension(v)
}

// bodyNode 只有 <body> 內的元素參與標題鄰近加分
func bodyNode(s *goquery.Selection) *goquery.Selection {
	if s.Closest("body").Length() == 0 {
		return nil
	}
	return s
}

func scoreCandidate(c *ImageCandidate, title string) {
	bonus := 0

	name := ""
	if u, err := url.Parse(c.URL); err == nil {
		name = strings.ToLower(path.Base(u.Path))
	}
	if containsAny(name, penaltyKeywords) {
		bonus -= 30
	}
	if containsAny(name, bonusKeywords) {
		bonus += 10
	}

	if c.Width != nil && c.Height != nil && *c.Width > 0 && *c.Height > 0 {
		ratio := float64(*c.Width) / float64(*c.Height)
		if ratio >= 0.8 && ratio <= 2.2 {
			bonus += 5
		} else {
			bonus -= 5
		}
	}

	if nearTitle(c.node, title) {
		bonus += 10
	}

	var hint float64
	switch {
	case c.Width != nil && c.Height != nil:
		hint = clamp(float64(*c.Width)*float64(*c.Height)/10000, 0, 200)
	case c.Width != nil:
		hint = clamp(float64(*c.Width)/100, 0, 100)
	}

	c.DOMBonus = bonus
	c.SizeHint = hint
	c.Score = float64(c.Signal+bonus) + hint
}

// nearTitle 祖先鏈（最多 6 層，不含 body/html）的文字是否包含頁面標題
func nearTitle(node *goquery.Selection, title string) bool {
	if node == nil || len(title) < 3 {
		return false
	}
	cur := node.Parent()
	for depth := 0; depth < proximityDepth && cur.Length() > 0; depth++ {
		switch goquery.NodeName(cur) {
		case "body", "html":
			return false
		}
		if strings.Contains(strings.ToLower(common.CollapseSpaces(cur.Text())), title) {
			return true
		}
		cur = cur.Parent()
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
