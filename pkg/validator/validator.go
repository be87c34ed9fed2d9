package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Init 把自定义规则注册到 gin binding 的校验引擎上 (gin 使用 binding tag)
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("decimal", isDecimal)
	}
}

// Get 返回业务层使用的校验引擎 (validate tag)，并注册自定义规则
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("decimal", isDecimal)
	})
	return validate
}

// Struct 校验结构体，失败时返回可读的错误信息
func Struct(s interface{}) error {
	if err := Get().Struct(s); err != nil {
		return errors.New(GetErrorMsg(err))
	}
	return nil
}

// isDecimal 允许空串，需要必填时配合 required 使用
func isDecimal(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "请求参数错误"
	}

	errMsgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
		case "eth_addr":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的地址", field))
		case "decimal", "numeric":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是数字", field))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 至少为 %s", field, e.Param()))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能超过 %s", field, e.Param()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, e.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, e.Tag()))
		}
	}
	return strings.Join(errMsgs, "; ")
}
