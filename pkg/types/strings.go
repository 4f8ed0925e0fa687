package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringSlice 字符串列表（数据库中为JSON数组列）
type StringSlice []string

// NormalizeStrings 去除首尾空白、丢弃空串并去重，保持原有顺序
func NormalizeStrings(values []string) StringSlice {
	result := make(StringSlice, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// SplitStrings 按分隔符切分后规范化
func SplitStrings(s, sep string) StringSlice {
	if strings.TrimSpace(s) == "" {
		return StringSlice{}
	}
	return NormalizeStrings(strings.Split(s, sep))
}

// Contains 是否包含指定值
func (s StringSlice) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// GormDataType 数据库列类型
func (StringSlice) GormDataType() string {
	return "json"
}

// Value 实现 driver.Valuer 接口
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal StringSlice to JSON: %w", err)
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner 接口
func (s *StringSlice) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan StringSlice: unsupported database type %T", value)
	}

	if len(data) == 0 {
		*s = nil
		return nil
	}

	var result []string
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to unmarshal StringSlice from JSON: %w", err)
	}
	*s = result
	return nil
}
