package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
// role 由 ResolveUser 中间件按库中账号写入，不取 Token 内的角色。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

// MustGetSubject 组装调用者身份，交给 Service 层鉴权
// 身份在每个请求内重新解析，角色变更与停用即时生效
func MustGetSubject(c *gin.Context) (authz.Subject, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return authz.Subject{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return authz.Subject{}, false
	}
	return authz.Subject{UserID: userID, Role: role}, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
