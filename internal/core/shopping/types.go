package shopping

import "time"

// Entry 購物清單項目，MergeKey 為唯一識別（單位|名稱）
type Entry struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name_norm"`
	Unit      *string   `json:"unit" db:"unit_norm"`
	Quantity  *float64  `json:"quantity" db:"quantity"`
	Done      bool      `json:"done" db:"done"`
	Category  *string   `json:"category" db:"category"`
	MergeKey  string    `json:"merge_key" db:"merge_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Item 合併請求中的單一項目，name 內也可帶數量與單位
type Item struct {
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Name     string   `json:"name"`
	Category *string  `json:"category"`
}

// CreateRequest 自由文字新增
type CreateRequest struct {
	Text string `json:"text"`
}

// MergeRequest 批次合併
type MergeRequest struct {
	Items []Item `json:"items"`
}

// Patch 部分更新；ClearQuantity 會一併移除單位
type Patch struct {
	Name          *string  `json:"name"`
	Quantity      *float64 `json:"quantity"`
	Unit          *string  `json:"unit"`
	Done          *bool    `json:"done"`
	Category      *string  `json:"category"`
	ClearQuantity bool     `json:"clear_quantity"`
}

// Resolved 正規化後準備寫入的項目
type Resolved struct {
	Name     string
	Unit     *string
	Quantity *float64
	Category *string
	Key      string
}
