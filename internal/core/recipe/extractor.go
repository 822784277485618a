package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/core/ingredient"
	"recipe-importer/internal/core/units"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// 頁面文字送進提示詞前的上限（字元）
	maxPromptRunes = 24000
	// 分類請求的逾時與 token 上限
	classifyTimeout   = 30 * time.Second
	classifyMaxTokens = 50
)

const extractSystemPrompt = `You extract recipes from web pages and photos.
Rules:
1. Translate everything to English.
2. Use only these units: g, kg, ml, L, tsp, tbsp. Convert imperial units: oz -> g (x28), lb -> g (x454), fl oz -> ml (x30), cup -> ml (x240), pint -> ml (x473).
3. When a quantity is a range such as "2-3", use the mean (2.5).
4. Put preparation words after the name separated by ", " (for example "onion, diced" or "garlic, minced").
5. Omit quantity and unit when the ingredient has none (for example "salt to taste").
6. Instructions are short imperative steps in cooking order, without numbering.
Respond with strict JSON only, no commentary and no code fences:
{"ingredients":[{"quantity":number|null,"unit":string|null,"name":string}],"instructions":[string]}`

const visionExtraPrompt = `
The recipe is shown in the attached photos. Also return the dish name as "title" in the same JSON object.`

const classifySystemPrompt = `You sort grocery items into shopping-list aisles.
Respond with strict JSON only: {"category":"<one of: %s>"}`

// Extractor 以聊天補全服務進行結構化擷取
type Extractor struct {
	completer provider.Completer
	config    config.OpenRouterConfig
	maxImages int
}

// NewExtractor 創建擷取器
func NewExtractor(completer provider.Completer, cfg config.OpenRouterConfig, maxImages int) *Extractor {
	if maxImages <= 0 {
		maxImages = 3
	}
	return &Extractor{
		completer: completer,
		config:    cfg,
		maxImages: maxImages,
	}
}

// ExtractFromText 從頁面可見文字擷取食材與步驟
func (e *Extractor) ExtractFromText(ctx context.Context, text string, opts Options) (*ExtractionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.NewValidationError("page text is empty")
	}

	req := e.request(opts, e.config.Model)
	req.System = extractSystemPrompt
	req.User = "Extract the recipe from this page text:\n\n" + truncateRunes(text, maxPromptRunes)
	return e.extract(ctx, req)
}

// ExtractFromImages 從照片（可附文字）擷取食譜
func (e *Extractor) ExtractFromImages(ctx context.Context, images []string, text string, opts Options) (*ExtractionResult, error) {
	if len(images) == 0 {
		return nil, common.NewValidationError("at least one image is required")
	}
	if len(images) > e.maxImages {
		return nil, common.NewValidationError(fmt.Sprintf("at most %d images are allowed", e.maxImages))
	}

	model := e.config.VisionModel
	if model == "" {
		model = e.config.Model
	}
	req := e.request(opts, model)
	req.System = extractSystemPrompt + visionExtraPrompt
	req.User = "Extract the recipe from the attached photos."
	if t := strings.TrimSpace(text); t != "" {
		req.User += "\n\nAdditional notes:\n" + truncateRunes(t, maxPromptRunes)
	}
	req.Images = images
	return e.extract(ctx, req)
}

func (e *Extractor) request(opts Options, defaultModel string) *provider.Request {
	req := &provider.Request{
		Model:       defaultModel,
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
		Timeout:     e.config.Timeout,
		JSONMode:    true,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.Timeout > 0 {
		req.Timeout = opts.Timeout
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return req
}

func (e *Extractor) extract(ctx context.Context, req *provider.Request) (*ExtractionResult, error) {
	if e.completer == nil {
		return nil, common.ErrMissingAPIKey
	}

	content, err := e.completer.Complete(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMissingAPIKey):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, common.ErrGatewayTimeout.Wrap(err)
		default:
			return nil, common.ErrExtraction.Wrap(err)
		}
	}

	result, err := ParseExtraction(content)
	if err != nil {
		return nil, common.ErrExtraction.Wrap(err)
	}

	common.LogDebug("擷取完成",
		zap.String("model", req.Model),
		zap.Int("ingredients", len(result.Ingredients)),
		zap.Int("instructions", len(result.Instructions)),
	)
	return result, nil
}

// rawExtraction 模型回覆的寬鬆結構，項目可為字串或物件
type rawExtraction struct {
	Title        string            `json:"title"`
	Ingredients  []json.RawMessage `json:"ingredients"`
	Instructions []json.RawMessage `json:"instructions"`
}

type rawIngredient struct {
	Quantity json.RawMessage `json:"quantity"`
	Unit     *string         `json:"unit"`
	Name     string          `json:"name"`
}

// ParseExtraction 對模型回覆套用 JSON 修復鏈，並正規化、去重
func ParseExtraction(content string) (*ExtractionResult, error) {
	var raw rawExtraction
	if err := common.RecoverJSONInto(content, &raw); err != nil {
		return nil, err
	}

	ingredients := make([]ingredient.ParsedIngredient, 0, len(raw.Ingredients))
	for _, item := range raw.Ingredients {
		if p, ok := decodeIngredient(item); ok {
			ingredients = append(ingredients, p)
		}
	}

	instructions := make([]string, 0, len(raw.Instructions))
	for _, item := range raw.Instructions {
		if s := decodeInstruction(item); s != "" {
			instructions = append(instructions, s)
		}
	}

	return &ExtractionResult{
		Title:        strings.TrimSpace(raw.Title),
		Ingredients:  DedupIngredients(ingredients),
		Instructions: DedupInstructions(instructions),
	}, nil
}

func decodeIngredient(item json.RawMessage) (ingredient.ParsedIngredient, bool) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '"' {
		var line string
		if err := json.Unmarshal(item, &line); err != nil {
			return ingredient.ParsedIngredient{}, false
		}
		p := ingredient.ParseLine(line)
		return p, p.Name != ""
	}

	var obj rawIngredient
	if err := json.Unmarshal(item, &obj); err != nil {
		return ingredient.ParsedIngredient{}, false
	}
	name := common.CollapseSpaces(obj.Name)
	if name == "" {
		return ingredient.ParsedIngredient{}, false
	}

	qty := decodeQuantity(obj.Quantity)
	var unit *string
	if raw := strings.TrimSpace(common.Deref(obj.Unit)); raw != "" {
		if u, ok := units.CanonUnitStr(raw); ok {
			unit = &u
		} else if u, factor, ok := units.Imperial(raw); ok {
			unit = &u
			if qty != nil {
				v := units.Round(*qty * factor)
				qty = &v
			}
		} else {
			// 無法辨識的單位詞保留在名稱中（如 "2 cloves garlic"）
			name = raw + " " + name
		}
	}
	if qty == nil {
		unit = nil
	}

	return ingredient.ParsedIngredient{Quantity: qty, Unit: unit, Name: name}, true
}

func decodeQuantity(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if v, ok := ingredient.ParseQuantity(s); ok {
			return &v
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	v = units.Round(v)
	return &v
}

func decodeInstruction(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return common.CollapseSpaces(s)
	}
	var obj struct {
		Text string `json:"text"`
		Step string `json:"step"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return ""
	}
	if obj.Text != "" {
		return common.CollapseSpaces(obj.Text)
	}
	return common.CollapseSpaces(obj.Step)
}

// DedupIngredients 以 小寫單位|小寫名稱 去重，保留首見項目
func DedupIngredients(items []ingredient.ParsedIngredient) []ingredient.ParsedIngredient {
	seen := make(map[string]bool, len(items))
	out := make([]ingredient.ParsedIngredient, 0, len(items))
	for _, it := range items {
		key := it.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// DedupInstructions 以小寫去空白文字去重，保留首見順序
func DedupInstructions(steps []string) []string {
	seen := make(map[string]bool, len(steps))
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// ClassifyCategory 請模型從固定清單中挑選分類；
// 未設定金鑰、請求失敗、回覆無法解析或不在清單內時回傳 fallback
func (e *Extractor) ClassifyCategory(ctx context.Context, name string, allowed []string, fallback string) string {
	name = strings.TrimSpace(name)
	if e.completer == nil || name == "" || len(allowed) == 0 {
		return fallback
	}

	req := &provider.Request{
		Model:     e.config.Model,
		System:    fmt.Sprintf(classifySystemPrompt, strings.Join(allowed, ", ")),
		User:      "Item: " + name,
		MaxTokens: classifyMaxTokens,
		Timeout:   classifyTimeout,
		JSONMode:  true,
	}
	content, err := e.completer.Complete(ctx, req)
	if err != nil {
		if !errors.Is(err, common.ErrMissingAPIKey) {
			common.LogWarn("分類失敗，使用預設分類", zap.String("name", name), zap.Error(err))
		}
		return fallback
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := common.RecoverJSONInto(content, &out); err != nil {
		common.LogWarn("分類回覆無法解析，使用預設分類", zap.String("name", name), zap.Error(err))
		return fallback
	}
	for _, c := range allowed {
		if strings.EqualFold(strings.TrimSpace(out.Category), c) {
			return c
		}
	}
	return fallback
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
