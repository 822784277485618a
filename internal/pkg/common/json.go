package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ParseJSONBytes 解析 JSON 位元組切片到結構體，數字保留為 json.Number
func ParseJSONBytes(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

// ErrNoJSON 模型輸出中找不到可解析的 JSON
var ErrNoJSON = errors.New("no valid JSON found in model output")

// 錯誤訊息中附帶的原文預覽長度（字元）
const recoveryPreviewRunes = 500

var fencedJSONPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// RecoverJSON 從 LLM 回覆中取出 JSON：
//  1. 整段文字直接解析
//  2. ``` 或 ```json 圍欄區塊中的 {...}
//  3. 最大的平衡 {...} 片段（字串感知的括號掃描）
//
// 三者皆失敗時回傳 ErrNoJSON，並附上前 500 字元預覽。
func RecoverJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		if json.Valid([]byte(m[1])) {
			return json.RawMessage(m[1]), nil
		}
	}

	if obj, ok := LargestBalancedObject(text); ok && json.Valid([]byte(obj)) {
		return json.RawMessage(obj), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrNoJSON, preview(text, recoveryPreviewRunes))
}

// RecoverJSONInto 以 RecoverJSON 取出 JSON 後解析到 v
func RecoverJSONInto(text string, v interface{}) error {
	raw, err := RecoverJSON(text)
	if err != nil {
		return err
	}
	if err := ParseJSONBytes(raw, v); err != nil {
		return fmt.Errorf("recovered JSON does not match expected shape: %w", err)
	}
	return nil
}

type scanState int

const (
	scanPlain scanState = iota
	scanInString
	scanInStringEscaped
)

// LargestBalancedObject 回傳文字中跨度最大的頂層平衡 {...} 片段。
//
// 掃描規則：
//   - 字串狀態只在 depth > 0 時追蹤；物件外的引號（散文中的 "quoted" 字）
//     一律忽略，不會讓後面的 { 被當成字串內容。
//   - 物件內字串中的 { } 與跳脫的 \" 不影響深度。
//   - depth 為 0 時多出來的 } 直接略過。
//   - 未閉合的物件不列入候選，但不影響先前已閉合的物件。
//   - 跨度相同時保留先出現者。
//
// 不檢查片段是否為合法 JSON，由呼叫端自行驗證。
func LargestBalancedObject(text string) (string, bool) {
	state := scanPlain
	depth, start := 0, -1
	bestStart, bestEnd := -1, -1

	// 結構字元皆為 ASCII，UTF-8 多位元組序列不會誤判
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case scanInString:
			switch c {
			case '\\':
				state = scanInStringEscaped
			case '"':
				state = scanPlain
			}
			continue
		case scanInStringEscaped:
			state = scanInString
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				state = scanInString
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && i+1-start > bestEnd-bestStart {
				bestStart, bestEnd = start, i+1
			}
		}
	}

	if bestStart < 0 {
		return "", false
	}
	return text[bestStart:bestEnd], true
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
