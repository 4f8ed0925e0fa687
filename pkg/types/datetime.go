package types

import (
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout 接口中使用的日期时间格式 yyyy-MM-dd HH:mm:ss
const DateTimeLayout = time.DateTime

// ParseDateTime 空字符串返回nil
func ParseDateTime(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateTimeLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid datetime %q, expected yyyy-MM-dd HH:mm:ss", s)
	}
	return &t, nil
}

// FormatDateTime nil返回空字符串
func FormatDateTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateTimeLayout)
}
