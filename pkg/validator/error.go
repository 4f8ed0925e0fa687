package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationContext 收集单次验证的错误
type ValidationContext struct {
	Scene  ValidateScene `json:"scene"`
	Errors []*FieldError `json:"errors,omitempty"`
}

// NewValidationContext 创建验证上下文
func NewValidationContext(scene ValidateScene) *ValidationContext {
	return &ValidationContext{Scene: scene}
}

// HasErrors 是否有验证错误
func (vc *ValidationContext) HasErrors() bool {
	return len(vc.Errors) > 0
}

// AddError 添加字段错误
func (vc *ValidationContext) AddError(err *FieldError) {
	if err != nil {
		vc.Errors = append(vc.Errors, err)
	}
}

// AddErrorByValidator 转换 go-playground 的字段错误
func (vc *ValidationContext) AddErrorByValidator(e validator.FieldError) {
	vc.Errors = append(vc.Errors, &FieldError{
		FieldName: e.StructField(),
		JsonName:  e.Field(),
		Tag:       e.Tag(),
		Param:     e.Param(),
		Value:     e.Value(),
		Namespace: e.Namespace(),
	})
}

// FieldError 单个字段的验证错误
// 国际化时可以通过 Namespace + Tag 和 Param 查找翻译
type FieldError struct {
	FieldName string `json:"field_name,omitempty"` // 结构体字段名
	JsonName  string `json:"json_name"`            // JSON字段名
	Tag       string `json:"tag"`                  // 验证标签
	Param     string `json:"param,omitempty"`      // 验证参数
	Value     any    `json:"value,omitempty"`      // 字段实际值
	Message   string `json:"message,omitempty"`    // 直接展示给用户的消息
	Namespace string `json:"namespace,omitempty"`  // 完整命名空间
}

// NewFieldError 创建字段错误
func NewFieldError(value any, fieldName, jsonName, tag, param string) *FieldError {
	return &FieldError{
		FieldName: fieldName,
		JsonName:  jsonName,
		Tag:       tag,
		Param:     param,
		Value:     value,
		Namespace: jsonName,
	}
}

// WithMessage 设置展示消息
func (fe *FieldError) WithMessage(message string) *FieldError {
	fe.Message = message
	return fe
}

// String 友好的错误信息
func (fe *FieldError) String() string {
	if fe.Message != "" {
		return fmt.Sprintf("field '%s': %s", fe.JsonName, fe.Message)
	}
	if fe.Param != "" {
		return fmt.Sprintf("field '%s' failed on '%s=%s'", fe.JsonName, fe.Tag, fe.Param)
	}
	return fmt.Sprintf("field '%s' failed on '%s'", fe.JsonName, fe.Tag)
}

// Errors 实现 error 接口的字段错误集合
type Errors []*FieldError

// AsError 空集合返回nil
func AsError(errs []*FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return Errors(errs)
}

// Error 以分号连接各字段错误
func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.String())
	}
	return strings.Join(parts, "; ")
}

// First 第一个错误的展示文本
func (e Errors) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].String()
}
