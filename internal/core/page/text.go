package page

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 不可見或非正文的標籤，整棵子樹略過
var skipTags = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Nav: true, atom.Footer: true, atom.Form: true, atom.Input: true, atom.Button: true,
	atom.Select: true, atom.Textarea: true, atom.Label: true,
	atom.Iframe: true, atom.Svg: true, atom.Canvas: true, atom.Video: true, atom.Audio: true,
	atom.Object: true, atom.Embed: true, atom.Map: true, atom.Math: true,
}

// 區塊標籤：內容前後強制換行
var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Header: true, atom.Aside: true, atom.Address: true, atom.Blockquote: true, atom.Pre: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Caption: true, atom.Figure: true, atom.Figcaption: true,
	atom.Details: true, atom.Summary: true, atom.Hr: true,
}

var (
	entityPattern     = regexp.MustCompile(`&(#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|amp|lt|gt|quot|apos|nbsp|ndash|mdash|bull);`)
	horizontalSpace   = regexp.MustCompile(`[^\S\n]+`)
	excessiveNewlines = regexp.MustCompile(`\n{3,}`)
)

var namedEntities = map[string]string{
	"amp": "&", "lt": "<", "gt": ">", "quot": `"`, "apos": "'",
	"nbsp": "\u00a0", "ndash": "–", "mdash": "—", "bull": "•",
}

// DecodeEntities 解碼固定集合的 HTML 實體與數字實體（單次替換，不重複解碼）
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := namedEntities[name]; ok {
			return v
		}
		var code int64
		var err error
		if name[1] == 'x' || name[1] == 'X' {
			code, err = strconv.ParseInt(name[2:], 16, 32)
		} else {
			code, err = strconv.ParseInt(name[1:], 10, 32)
		}
		if err != nil || code <= 0 || code > unicode.MaxRune {
			return m
		}
		return string(rune(code))
	})
}

// ExtractText 從 HTML 取出可見文字
func ExtractText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	w := &textWriter{}
	w.walk(root)
	return cleanupText(w.sb.String()), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

type textWriter struct {
	sb strings.Builder
}

func (w *textWriter) lastByte() byte {
	s := w.sb.String()
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

// boundary 區塊邊界：若尚未換行則補一個換行
func (w *textWriter) boundary() {
	if w.sb.Len() > 0 && w.lastByte() != '\n' {
		w.sb.WriteByte('\n')
	}
}

func (w *textWriter) text(t string) {
	if t == "" {
		return
	}
	if w.sb.Len() > 0 && !isSpaceByte(w.lastByte()) && !startsWithSpace(t) {
		w.sb.WriteByte(' ')
	}
	w.sb.WriteString(t)
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if skipTags[n.DataAtom] || isHidden(n) {
			return
		}
		if n.DataAtom == atom.Br {
			w.sb.WriteByte('\n')
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.DataAtom]
	if block {
		w.boundary()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.boundary()
	}
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(strings.TrimSpace(a.Val), "true") {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

// cleanupText 合併空白、壓縮空行、去除連續重複行。
// 文字節點已由 html.Parse 解碼，這裡不再解碼實體。
func cleanupText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = excessiveNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	lines = strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if i > 0 && l != "" && l == lines[i-1] {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
