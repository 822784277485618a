package shopping

import (
	"strings"

	"recipe-importer/internal/core/ingredient"
	"recipe-importer/internal/core/units"
	"recipe-importer/internal/pkg/common"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName NFKC 正規化、小寫、壓縮空白
func NormalizeName(s string) string {
	return strings.ToLower(common.CollapseSpaces(norm.NFKC.String(s)))
}

// MergeKey 組合合併鍵，無單位時前綴為空
func MergeKey(unit *string, name string) string {
	return common.Deref(unit) + "|" + name
}

// ResolveItem 解析 name 中的數量單位；明確欄位優先於從 name 解析出的值
func ResolveItem(item Item) Resolved {
	parsed := ingredient.ParseLine(item.Name)

	qty := parsed.Quantity
	unit := common.Deref(parsed.Unit)
	if item.Quantity != nil || strings.TrimSpace(common.Deref(item.Unit)) != "" {
		qty = item.Quantity
		unit = common.Deref(item.Unit)
	}

	r := ResolveFields(parsed.Name, unit, qty)
	r.Category = item.Category
	return r
}

// ResolveFields 合併用正規化：名稱小寫、單位收斂到 g/ml；沒有數量時強制無單位
func ResolveFields(name, unit string, qty *float64) Resolved {
	name = NormalizeName(name)
	canonUnit, canonQty := units.ToCanonical(unit, qty)
	if canonQty == nil {
		canonUnit = ""
	}

	r := Resolved{
		Name:     name,
		Unit:     common.StringPtr(canonUnit),
		Quantity: canonQty,
	}
	r.Key = MergeKey(r.Unit, r.Name)
	return r
}

// accumulate 任一邊沒有數量時取另一邊，兩邊都有才相加
func accumulate(existing, incoming *float64) *float64 {
	switch {
	case existing == nil:
		return incoming
	case incoming == nil:
		return existing
	default:
		sum := units.Round(*existing + *incoming)
		return &sum
	}
}
