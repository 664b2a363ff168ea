package dto

// ── 用户模块 DTO ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role     string `form:"role"      binding:"omitempty,oneof=admin instructor student"`
	IsActive *bool  `form:"is_active"`
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
}

// UpdateUserRequest 更新用户信息请求（本人或管理员）
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name"  binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone"      binding:"omitempty,max=30"`
}

// AssignRoleRequest 分配角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin instructor student"`
}

// UpdateUserStatusRequest 启用/停用账号
type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
