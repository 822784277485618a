package ingredient

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-importer/internal/core/units"
	"recipe-importer/internal/pkg/common"
)

// ParsedIngredient 單行食材解析結果，單位為顯示用正規單位
type ParsedIngredient struct {
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Name     string   `json:"name"`
}

// DedupKey 去重鍵：小寫單位 + "|" + 小寫去空白名稱，不含數量
func (p ParsedIngredient) DedupKey() string {
	return strings.ToLower(common.Deref(p.Unit)) + "|" + strings.ToLower(strings.TrimSpace(p.Name))
}

// String 以 "數量 單位 名稱" 格式輸出
func (p ParsedIngredient) String() string {
	parts := make([]string, 0, 3)
	if p.Quantity != nil {
		parts = append(parts, strconv.FormatFloat(*p.Quantity, 'f', -1, 64))
	}
	if p.Unit != nil {
		parts = append(parts, *p.Unit)
	}
	parts = append(parts, p.Name)
	return strings.Join(parts, " ")
}

// 開頭數量，可為範圍 a-b / a–b，小數點可用逗號
var quantityPattern = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)(?:\s*[-–]\s*(\d+(?:[.,]\d+)?))?\s*(.*)$`)

// ParseLine 解析單行食材為 {數量, 單位, 名稱}。
// 找不到開頭數字、或去掉數量單位後名稱為空時，整行視為名稱。
func ParseLine(line string) ParsedIngredient {
	line = common.CollapseSpaces(line)
	if line == "" {
		return ParsedIngredient{}
	}

	m := quantityPattern.FindStringSubmatch(line)
	if m == nil {
		return ParsedIngredient{Name: line}
	}

	qty, ok := ParseNumber(m[1])
	if !ok {
		return ParsedIngredient{Name: line}
	}
	if m[2] != "" {
		if hi, ok := ParseNumber(m[2]); ok {
			qty = (qty + hi) / 2
		}
	}

	words := strings.Fields(m[3])
	var unit *string
	if u, factor, n := matchUnit(words); n > 0 {
		qty *= factor
		unit = &u
		words = words[n:]
	}
	if len(words) > 0 && strings.EqualFold(words[0], "of") {
		words = words[1:]
	}

	name := strings.Join(words, " ")
	if name == "" {
		return ParsedIngredient{Name: line}
	}

	qty = units.Round(qty)
	return ParsedIngredient{Quantity: &qty, Unit: unit, Name: name}
}

// ParseLines 逐行解析，略過空白行
func ParseLines(lines []string) []ParsedIngredient {
	out := make([]ParsedIngredient, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, ParseLine(l))
	}
	return out
}

// matchUnit 比對開頭的單位詞（最多兩個字，如 "fl oz"），回傳顯示單位、換算係數與吃掉的字數
func matchUnit(words []string) (string, float64, int) {
	for n := 2; n >= 1; n-- {
		if len(words) < n {
			continue
		}
		token := strings.Join(words[:n], " ")
		if u, ok := units.CanonUnitStr(token); ok {
			return u, 1, n
		}
		if u, factor, ok := units.Imperial(token); ok {
			return u, factor, n
		}
	}
	return "", 0, 0
}

// ParseNumber 解析數字，接受逗號或點作為小數點
func ParseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseQuantity 解析數量字串，支援範圍（取平均）
func ParseQuantity(s string) (float64, bool) {
	m := quantityPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || strings.TrimSpace(m[3]) != "" {
		return 0, false
	}
	lo, ok := ParseNumber(m[1])
	if !ok {
		return 0, false
	}
	if m[2] == "" {
		return lo, true
	}
	hi, ok := ParseNumber(m[2])
	if !ok {
		return 0, false
	}
	return units.Round((lo + hi) / 2), true
}
