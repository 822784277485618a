package shopping

import (
	"strings"
	"unicode"
)

// Categories 分類固定清單（也是分類模型可回傳的值）
var Categories = []string{
	"Produce",
	"Meat & Seafood",
	"Dairy & Eggs",
	"Bakery",
	"Pantry",
	"Spices & Herbs",
	"Frozen",
	"Beverages",
	"Household",
	"Other",
}

type categoryKeywords struct {
	category string
	keywords []string
}

// categoryTable 依序比對，第一個命中的分類勝出；順序決定重疊關鍵字的歸屬
var categoryTable = []categoryKeywords{
	{"Frozen", []string{"frozen", "ice cream"}},
	{"Pantry", []string{
		"peanut butter", "coconut milk", "flour", "sugar", "rice", "pasta", "spaghetti", "noodle",
		"oil", "vinegar", "honey", "syrup", "stock", "broth", "bean", "lentil", "chickpea",
		"canned", "tomato paste", "soy sauce", "cocoa", "chocolate", "oat", "cereal", "baking",
		"yeast", "nut", "almond", "walnut", "cornstarch",
	}},
	{"Produce", []string{
		"apple", "banana", "lemon", "lime", "orange", "berry", "raspberry", "blueberry", "strawberry",
		"grape", "avocado", "tomato", "potato", "onion", "garlic", "shallot", "carrot", "celery", "lettuce", "spinach",
		"kale", "cabbage", "broccoli", "cauliflower", "zucchini", "cucumber", "bell pepper",
		"chili", "mushroom", "ginger", "leek", "pea", "corn", "squash", "pumpkin", "eggplant",
		"melon", "watermelon",
	}},
	{"Spices & Herbs", []string{
		"salt", "pepper", "cumin", "paprika", "cinnamon", "nutmeg", "oregano", "thyme", "basil",
		"parsley", "cilantro", "coriander", "rosemary", "dill", "mint", "turmeric", "curry",
		"clove", "bay leaf", "bay leaves", "vanilla", "chive",
	}},
	{"Meat & Seafood", []string{
		"chicken", "beef", "pork", "lamb", "turkey", "bacon", "ham", "sausage", "mince",
		"fish", "salmon", "tuna", "cod", "shrimp", "prawn", "mussel", "steak",
	}},
	{"Dairy & Eggs", []string{
		"milk", "cream", "butter", "cheese", "yogurt", "yoghurt", "egg", "parmesan", "mozzarella",
		"feta", "ricotta",
	}},
	{"Bakery", []string{"bread", "bun", "bagel", "tortilla", "baguette", "croissant", "pita"}},
	{"Beverages", []string{"water", "juice", "coffee", "tea", "wine", "beer", "soda"}},
	{"Household", []string{"paper", "soap", "detergent", "foil", "sponge", "trash bag"}},
}

// GuessCategory 以整詞比對正規化名稱（允許 s/es/ies 複數），無命中回傳空字串。
// 關鍵字只在詞邊界命中："nutmeg" 不會命中 "nut"，"watermelon" 不會命中 "water"。
func GuessCategory(name string) string {
	words := splitWords(NormalizeName(name))
	if len(words) == 0 {
		return ""
	}
	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			if containsPhrase(words, strings.Fields(kw)) {
				return entry.category
			}
		}
	}
	return ""
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsPhrase 判斷 phrase 的每個詞是否連續出現在 words 中
func containsPhrase(words, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		matched := true
		for j, kw := range phrase {
			if !wordMatches(words[i+j], kw) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func wordMatches(word, kw string) bool {
	if word == kw || word == kw+"s" || word == kw+"es" {
		return true
	}
	return strings.HasSuffix(kw, "y") && word == kw[:len(kw)-1]+"ies"
}
