// Package validation 在 gin 的 validator 引擎上注册业务校验规则，
// 并把绑定错误整理成可读的字段说明。
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3,4}[A-Z]?$`)
	gradePattern      = regexp.MustCompile(`^([A-D][+-]?|F|P|NP)$`)
)

var registerOnce sync.Once

// Register 将自定义 tag 注册到 gin 默认校验器，重复调用无副作用
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin 校验引擎不是 validator/v10")
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn 在指定校验器上注册 course_code 与 grade
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return courseCodePattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("注册 course_code 校验失败: %w", err)
	}
	if err := v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
		return gradePattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("注册 grade 校验失败: %w", err)
	}
	return nil
}

// IsCourseCode 课程代码格式，如 CS101、MATH2010A
func IsCourseCode(s string) bool { return courseCodePattern.MatchString(s) }

// IsGrade 成绩格式：A~D 可带 +/-，或 F / P / NP
func IsGrade(s string) bool { return gradePattern.MatchString(s) }

// Describe 将 ShouldBind 返回的错误转成 "field: tag" 列表
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
