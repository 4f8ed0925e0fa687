package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"sort"
)

// Extras 扩展字段，存放非索引的动态键值对（数据库中为JSON列）
//
// 注意事项：
// - map 非线程安全，并发读写需要外部加锁
// - JSON反序列化后数字统一为float64，读取整数请用GetInt64
// - nil 与空 map 序列化结果一致
// - 键名为空字符串时忽略写入
type Extras map[string]any

// NewExtras 创建扩展字段
func NewExtras(capacity int) Extras {
	return make(Extras, capacity)
}

// Set 设置键值对
func (e Extras) Set(key string, value any) {
	if len(key) == 0 {
		return
	}
	e[key] = value
}

// SetOrDel value为nil时删除键
func (e Extras) SetOrDel(key string, value any) {
	if len(key) == 0 {
		return
	}
	if value == nil {
		delete(e, key)
		return
	}
	e[key] = value
}

// Delete 删除键
func (e Extras) Delete(key string) {
	delete(e, key)
}

// Get 获取原始值
func (e Extras) Get(key string) (any, bool) {
	value, exists := e[key]
	return value, exists
}

// Has 是否包含键
func (e Extras) Has(key string) bool {
	_, exists := e[key]
	return exists
}

// GetString 获取字符串
func (e Extras) GetString(key string) (string, bool) {
	str, ok := e[key].(string)
	return str, ok
}

// GetStringOr 获取字符串，不存在时返回默认值
func (e Extras) GetStringOr(key, defaultValue string) string {
	if str, ok := e.GetString(key); ok {
		return str
	}
	return defaultValue
}

// GetInt64 获取整数，兼容JSON反序列化得到的float64
func (e Extras) GetInt64(key string) (int64, bool) {
	switch val := e[key].(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val), true
		}
	case float64:
		if val >= math.MinInt64 && val < math.MaxInt64 && val == math.Trunc(val) {
			return int64(val), true
		}
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	}
	return 0, false
}

// GetFloat64 获取浮点数
func (e Extras) GetFloat64(key string) (float64, bool) {
	switch val := e[key].(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return 0, false
}

// GetBool 获取布尔值
func (e Extras) GetBool(key string) (bool, bool) {
	b, ok := e[key].(bool)
	return b, ok
}

// GetStringSlice 获取字符串切片，兼容[]any
func (e Extras) GetStringSlice(key string) ([]string, bool) {
	switch val := e[key].(type) {
	case []string:
		return val, true
	case []any:
		strs := make([]string, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			strs[i] = str
		}
		return strs, true
	}
	return nil, false
}

// GetExtras 获取嵌套的扩展字段
func (e Extras) GetExtras(key string) (Extras, bool) {
	switch val := e[key].(type) {
	case Extras:
		return val, true
	case map[string]any:
		return Extras(val), true
	}
	return nil, false
}

// Keys 按字典序返回所有键
func (e Extras) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len 键数量
func (e Extras) Len() int {
	return len(e)
}

// IsEmpty 是否为空
func (e Extras) IsEmpty() bool {
	return len(e) == 0
}

// Clone 浅拷贝
func (e Extras) Clone() Extras {
	if e == nil {
		return NewExtras(0)
	}
	return maps.Clone(e)
}

// Merge 合并other，冲突时以other为准
func (e Extras) Merge(other Extras) {
	for k, v := range other {
		e.Set(k, v)
	}
}

// GormDataType 数据库列类型
func (Extras) GormDataType() string {
	return "json"
}

// Value 实现 driver.Valuer 接口
func (e Extras) Value() (driver.Value, error) {
	if e == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]any(e))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Extras to JSON: %w", err)
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner 接口
func (e *Extras) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*e = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan Extras: unsupported database type %T, expected []byte or string", value)
	}

	if len(data) == 0 {
		*e = nil
		return nil
	}

	result := make(Extras)
	if err := json.Unmarshal(data, (*map[string]any)(&result)); err != nil {
		return fmt.Errorf("failed to unmarshal Extras from JSON: %w", err)
	}
	*e = result
	return nil
}

// MarshalJSON nil序列化为{}
func (e Extras) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(e))
}

// UnmarshalJSON null反序列化为nil
func (e *Extras) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = nil
		return nil
	}

	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to unmarshal JSON into Extras: %w", err)
	}
	*e = Extras(m)
	return nil
}
