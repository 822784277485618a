package common

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// CollapseSpaces 合併連續空白並去除首尾空白
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Float64Ptr 回傳 float64 指標
func Float64Ptr(v float64) *float64 {
	return &v
}

// StringPtr 回傳字串指標，空字串回傳 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref 取出字串指標的值，nil 視為空字串
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
