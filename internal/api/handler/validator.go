package handler

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"dance-house/internal/service"
)

var registerOnce sync.Once

// RegisterValidators 向 Gin 的校验引擎注册自定义规则
//   - vnphone: 越南手机号，允许空格、点、横线分隔
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
			return service.ValidPhone(fl.Field().String())
		})
	})
}
