package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidateScene 验证场景标识符，使用位运算支持场景组合
//
//	SceneCreate | SceneUpdate 表示同时适用于创建和更新
//	scene & SceneCreate != 0 判断是否包含创建场景
type ValidateScene int64

const (
	SceneNone   ValidateScene = 0      // 无场景
	SceneCreate ValidateScene = 1 << 0 // 创建
	SceneUpdate ValidateScene = 1 << 1 // 更新
	SceneQuery  ValidateScene = 1 << 2 // 查询
	SceneImport ValidateScene = 1 << 3 // 导入
	SceneAll    ValidateScene = -1     // 所有场景
)

// RuleValidator 按场景提供字段规则
//
//	func (d *TaskDTO) RuleValidation() map[ValidateScene]map[string]string {
//	    return map[ValidateScene]map[string]string{
//	        SceneCreate: {"Title": "required,max=200"},
//	        SceneUpdate: {"Title": "omitempty,max=200"},
//	    }
//	}
//
// 键可以是结构体字段名或json名，规则遵循 go-playground/validator 的标签语法。
type RuleValidator interface {
	RuleValidation() map[ValidateScene]map[string]string
}

// CustomValidator 跨字段或业务规则验证，错误通过 report 报告
type CustomValidator interface {
	CustomValidation(scene ValidateScene, report FuncReportError)
}

// FuncReportError 错误报告函数
//   - namespace: 字段名（json名）
//   - tag: 规则标签
//   - param: 规则参数
type FuncReportError func(namespace, tag, param string)

// Validator 结构体字段验证器
type Validator struct {
	validate  *validator.Validate
	typeCache sync.Map // reflect.Type -> *typeCache
}

// typeCache 避免重复的接口断言
type typeCache struct {
	isRuleValidator   bool
	isCustomValidator bool
	validationRules   map[ValidateScene]map[string]string
}

var (
	defaultValidator *Validator
	once             sync.Once
)

// Default 获取默认验证器实例
func Default() *Validator {
	once.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// Validate 使用默认验证器验证对象
func Validate(obj any, scene ValidateScene) []*FieldError {
	return Default().Validate(obj, scene)
}

// Check 使用默认验证器验证，失败时返回 Errors
func Check(obj any, scene ValidateScene) error {
	return AsError(Default().Validate(obj, scene))
}

// New 创建新的验证器实例，错误中的字段名取json标签
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate 验证对象，收集全部错误后返回，nil表示通过
//
// 流程：
//  1. 实现 RuleValidator 时按场景规则验证字段，否则使用 validate 标签
//  2. 实现 CustomValidator 时执行业务规则
func (v *Validator) Validate(obj any, scene ValidateScene) []*FieldError {
	if obj == nil {
		return []*FieldError{
			NewFieldError(nil, "", "struct", "required", "").
				WithMessage("validation target cannot be nil"),
		}
	}

	cache := v.getOrCacheTypeInfo(obj)
	ctx := NewValidationContext(scene)

	// 步骤1：字段规则
	if cache.isRuleValidator {
		v.validateFieldsByRules(obj, cache.validationRules, ctx)
	} else {
		v.validateFieldsByTags(obj, ctx)
	}

	// 步骤2：业务规则
	if cache.isCustomValidator {
		obj.(CustomValidator).CustomValidation(scene, func(namespace, tag, param string) {
			ctx.AddError(NewFieldError(nil, namespace, namespace, tag, param))
		})
	}

	if ctx.HasErrors() {
		return ctx.Errors
	}
	return nil
}

// validateFieldsByRules 合并匹配当前场景的规则后逐字段验证
func (v *Validator) validateFieldsByRules(obj any, rules map[ValidateScene]map[string]string, ctx *ValidationContext) {
	matched := make(map[string]string)
	for scene, sceneRules := range rules {
		if scene&ctx.Scene == 0 {
			continue
		}
		for fieldName, rule := range sceneRules {
			matched[fieldName] = rule
		}
	}
	if len(matched) == 0 {
		return
	}

	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for fieldName, rule := range matched {
		if rule == "" {
			continue
		}

		structField, ok := typ.FieldByName(fieldName)
		if !ok {
			structField, ok = findFieldByJSONTag(typ, fieldName)
		}
		if !ok || !structField.IsExported() {
			continue
		}

		field := val.FieldByIndex(structField.Index)
		if err := v.validate.Var(field.Interface(), rule); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				ctx.AddError(NewFieldError(nil, structField.Name, jsonName(structField), "", "").WithMessage(err.Error()))
				continue
			}
			// Var() 不知道字段名，这里补齐
			for _, e := range verrs {
				name := jsonName(structField)
				ctx.AddError(&FieldError{
					FieldName: structField.Name,
					JsonName:  name,
					Tag:       e.Tag(),
					Param:     e.Param(),
					Value:     e.Value(),
					Namespace: typ.Name() + "." + name,
				})
			}
		}
	}
}

// validateFieldsByTags 使用 validate 标签验证
func (v *Validator) validateFieldsByTags(obj any, ctx *ValidationContext) {
	err := v.validate.Struct(obj)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		ctx.AddError(NewFieldError(nil, "", "", "", "").WithMessage(err.Error()))
		return
	}
	for _, e := range verrs {
		ctx.AddErrorByValidator(e)
	}
}

func (v *Validator) getOrCacheTypeInfo(obj any) *typeCache {
	typ := reflect.TypeOf(obj)
	if cached, ok := v.typeCache.Load(typ); ok {
		return cached.(*typeCache)
	}

	cache := &typeCache{}
	if ruleValidator, ok := obj.(RuleValidator); ok {
		cache.isRuleValidator = true
		cache.validationRules = ruleValidator.RuleValidation()
	}
	_, cache.isCustomValidator = obj.(CustomValidator)

	actual, _ := v.typeCache.LoadOrStore(typ, cache)
	return actual.(*typeCache)
}

func findFieldByJSONTag(typ reflect.Type, tag string) (reflect.StructField, bool) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if strings.SplitN(f.Tag.Get("json"), ",", 2)[0] == tag {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
