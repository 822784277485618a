package recipe

import (
	"encoding/base64"
	"strings"
)

// getImageType 獲取圖片類型（用於日誌記錄）
func getImageType(image string) string {
	if image == "" {
		return "empty"
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return "url"
	}
	if strings.HasPrefix(image, "data:image/") {
		parts := strings.SplitN(image, ";base64,", 2)
		if len(parts) == 2 {
			return "data_uri_" + strings.TrimPrefix(parts[0], "data:image/")
		}
		return "invalid_data_uri"
	}
	if _, err := base64.StdEncoding.DecodeString(image); err == nil {
		return "base64"
	}
	return "unknown"
}

// getImagePrefix 依內容開頭猜測編碼格式，只用於日誌
func getImagePrefix(image string) string {
	payload := image
	if i := strings.Index(image, ";base64,"); i >= 0 {
		payload = image[i+len(";base64,"):]
	}
	switch {
	case strings.HasPrefix(payload, "/9j/"):
		return "[JPEG]"
	case strings.HasPrefix(payload, "iVBORw0KGgo"):
		return "[PNG]"
	case strings.HasPrefix(payload, "UklGR"):
		return "[WEBP]"
	case strings.HasPrefix(payload, "R0lGOD"):
		return "[GIF]"
	}
	return ""
}
