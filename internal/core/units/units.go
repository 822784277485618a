// Package units 負責單位正規化。
//
// 兩種正規形式刻意分開：
//   - 顯示用 CanonUnitStr：保留作者選的 tsp/tbsp 與 kg/L
//   - 合併用 ToCanonical：全部收斂到 g 或 ml，購物清單才能跨單位累加
package units

import (
	"math"
	"strings"
)

// 顯示用正規單位
const (
	Gram       = "g"
	Kilogram   = "kg"
	Millilitre = "ml"
	Litre      = "L"
	Teaspoon   = "tsp"
	Tablespoon = "tbsp"
)

// displaySynonyms 單位拼寫 → 顯示用正規單位（鍵為小寫、去除句點）
var displaySynonyms = map[string]string{
	"g": Gram, "gr": Gram, "grs": Gram, "gram": Gram, "grams": Gram, "gramme": Gram, "grammes": Gram,
	"kg": Kilogram, "kgs": Kilogram, "kilo": Kilogram, "kilos": Kilogram,
	"kilogram": Kilogram, "kilograms": Kilogram, "kilogramme": Kilogram, "kilogrammes": Kilogram,
	"ml": Millilitre, "mls": Millilitre, "milliliter": Millilitre, "milliliters": Millilitre,
	"millilitre": Millilitre, "millilitres": Millilitre,
	"l": Litre, "ltr": Litre, "ltrs": Litre, "liter": Litre, "liters": Litre, "litre": Litre, "litres": Litre,
	"tsp": Teaspoon, "tsps": Teaspoon, "teaspoon": Teaspoon, "teaspoons": Teaspoon,
	"tbsp": Tablespoon, "tbsps": Tablespoon, "tbs": Tablespoon, "tbl": Tablespoon,
	"tablespoon": Tablespoon, "tablespoons": Tablespoon,
}

type conversion struct {
	unit   string
	factor float64
}

// mergeConversions 顯示用單位 → 合併用基底單位
var mergeConversions = map[string]conversion{
	Gram:       {Gram, 1},
	Kilogram:   {Gram, 1000},
	Millilitre: {Millilitre, 1},
	Litre:      {Millilitre, 1000},
	Teaspoon:   {Millilitre, 5},
	Tablespoon: {Millilitre, 15},
}

// imperialConversions 英制單位 → 公制顯示單位，係數與擷取提示詞一致
var imperialConversions = map[string]conversion{
	"oz": {Gram, 28}, "ounce": {Gram, 28}, "ounces": {Gram, 28},
	"lb": {Gram, 454}, "lbs": {Gram, 454}, "pound": {Gram, 454}, "pounds": {Gram, 454},
	"fl oz": {Millilitre, 30}, "floz": {Millilitre, 30},
	"fluid ounce": {Millilitre, 30}, "fluid ounces": {Millilitre, 30},
	"cup": {Millilitre, 240}, "cups": {Millilitre, 240},
	"pint": {Millilitre, 473}, "pints": {Millilitre, 473},
}

func normalizeToken(raw string) string {
	s := strings.ToLower(strings.ReplaceAll(raw, ".", ""))
	return strings.Join(strings.Fields(s), " ")
}

// CanonUnitStr 將單位拼寫轉成顯示用正規單位，無法辨識時回傳 false。
// 對自身輸出冪等。
func CanonUnitStr(raw string) (string, bool) {
	u, ok := displaySynonyms[normalizeToken(raw)]
	return u, ok
}

// Imperial 將英制單位換算成公制顯示單位與乘數
func Imperial(raw string) (unit string, factor float64, ok bool) {
	c, ok := imperialConversions[normalizeToken(raw)]
	return c.unit, c.factor, ok
}

// IsKnown 判斷是否為公制或英制的已知單位拼寫
func IsKnown(raw string) bool {
	if _, ok := CanonUnitStr(raw); ok {
		return true
	}
	_, _, ok := Imperial(raw)
	return ok
}

// ToCanonical 合併用正規化：kg→g、L→ml、tbsp→ml、tsp→ml，數量同步換算。
// 無法辨識的單位若沒有數量則視為無單位；有數量時保留小寫原文。
func ToCanonical(unit string, qty *float64) (string, *float64) {
	if display, ok := CanonUnitStr(unit); ok {
		c := mergeConversions[display]
		return c.unit, scale(qty, c.factor)
	}
	if u, factor, ok := Imperial(unit); ok {
		c := mergeConversions[u]
		return c.unit, scale(qty, factor*c.factor)
	}

	raw := normalizeToken(unit)
	if raw == "" || qty == nil {
		return "", qty
	}
	return raw, qty
}

func scale(qty *float64, factor float64) *float64 {
	if qty == nil {
		return nil
	}
	v := Round(*qty * factor)
	return &v
}

// Round 四捨五入到 6 位小數，消除浮點換算誤差
func Round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
