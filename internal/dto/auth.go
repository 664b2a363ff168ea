package dto

// ── 认证模块 DTO ──

// RegisterRequest 自助注册请求，admin 账号只能由种子数据或管理员提升产生
type RegisterRequest struct {
	Email     string  `json:"email"      binding:"required,email,max=255"`
	Password  string  `json:"password"   binding:"required,min=8,max=72"`
	Role      string  `json:"role"       binding:"required,oneof=student instructor"`
	FirstName string  `json:"first_name" binding:"required,max=100"`
	LastName  string  `json:"last_name"  binding:"required,max=100"`
	Phone     *string `json:"phone"      binding:"omitempty,max=30"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // 秒
	User        UserResponse `json:"user"`
}

// RegisterResponse 注册成功响应
type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
