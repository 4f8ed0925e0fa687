package idgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"productivity-hub/pkg/idgen/core"
	"productivity-hub/pkg/idgen/snowflake"
)

// ErrEmptyID 空ID字符串
var ErrEmptyID = errors.New("empty ID string")

// ID 封装的ID类型，JSON序列化为字符串
type ID int64

// ParseID 从字符串解析ID（支持十进制、十六进制（0x前缀）和二进制（0b前缀））
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyID
	}

	var val int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		val, err = strconv.ParseInt(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		val, err = strconv.ParseInt(s[2:], 2, 64)
	default:
		val, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to parse ID: %w", err)
	}

	if val < 0 {
		return 0, fmt.Errorf("invalid ID: must be non-negative, got %d", val)
	}

	return ID(val), nil
}

// Int64 转换为int64类型
func (id ID) Int64() int64 {
	return int64(id)
}

// String 十进制字符串
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Hex 带0x前缀的十六进制字符串
func (id ID) Hex() string {
	return "0x" + strconv.FormatInt(int64(id), 16)
}

// Binary 带0b前缀的二进制字符串
func (id ID) Binary() string {
	return "0b" + strconv.FormatInt(int64(id), 2)
}

// MarshalJSON 序列化为字符串，避免JavaScript大整数精度丢失
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON 支持从字符串或数字反序列化
func (id *ID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" {
			*id = 0
			return nil
		}
		val, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse ID from string: %w", err)
		}
		*id = ID(val)
		return nil
	}

	var num int64
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("failed to parse ID from number: %w", err)
	}
	*id = ID(num)
	return nil
}

// IsZero 是否为零值
func (id ID) IsZero() bool {
	return id == 0
}

// IsValid 是否大于0
func (id ID) IsValid() bool {
	return id > 0
}

// Parse 按Snowflake布局解析
func (id ID) Parse() (*core.IDInfo, error) {
	return snowflake.NewParser().Parse(int64(id))
}

// Time Snowflake ID中的生成时间
func (id ID) Time() time.Time {
	return snowflake.GetTimestamp(int64(id))
}

// IDSlice ID切片
type IDSlice []ID

// Int64Slice 转换为int64切片
func (ids IDSlice) Int64Slice() []int64 {
	result := make([]int64, len(ids))
	for i, id := range ids {
		result[i] = id.Int64()
	}
	return result
}

// Deduplicate 去重并丢弃无效ID，保持首次出现的顺序
func (ids IDSlice) Deduplicate() IDSlice {
	seen := make(map[ID]struct{}, len(ids))
	result := make(IDSlice, 0, len(ids))
	for _, id := range ids {
		if !id.IsValid() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
