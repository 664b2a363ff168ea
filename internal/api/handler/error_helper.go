package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/izeinnn/University-management-system/internal/service"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
	"github.com/izeinnn/University-management-system/pkg/response"
	"github.com/izeinnn/University-management-system/pkg/validation"
)

// bindFailed 请求绑定或校验失败统一返回 422，请求体超限返回 413
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ValidationFailed(c, validation.Describe(err))
}

// message 去掉错误分类前缀，只保留业务描述
func message(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

// handleCommonError 各模块未单独映射的错误按分类兜底
func handleCommonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrInvalidDate):
		response.UnprocessableEntity(c, 10001, message(err))
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, message(err))
	case errors.Is(err, pkgerrors.ErrValidation):
		response.UnprocessableEntity(c, 10001, message(err))
	case errors.Is(err, pkgerrors.ErrUnauthenticated):
		response.Unauthorized(c, 10002, message(err))
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, 10003, message(err))
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 10007, message(err))
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, 10008, message(err))
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
