package dto

// ── 认证模块 DTO ──

// LoginRequest 后台登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresIn   int               `json:"expires_in"` // 有效期（秒）
	User        AdminUserResponse `json:"user"`
}

// AdminUserResponse 操作员信息（脱敏）
type AdminUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}
