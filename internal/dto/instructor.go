package dto

// ── 教师模块 DTO ──

// CreateInstructorRequest 创建教师档案
type CreateInstructorRequest struct {
	UserID         string  `json:"user_id"         binding:"required,uuid"`
	EmployeeNumber string  `json:"employee_number" binding:"required,alphanum,max=20"`
	FullName       string  `json:"full_name"       binding:"required,max=100"`
	Department     string  `json:"department"      binding:"required,max=100"`
	HireDate       *string `json:"hire_date"       binding:"omitempty,datetime=2006-01-02"`
	OfficeLocation *string `json:"office_location" binding:"omitempty,max=100"`
}

// UpdateInstructorRequest 更新教师档案
type UpdateInstructorRequest struct {
	FullName       *string `json:"full_name"       binding:"omitempty,min=1,max=100"`
	Department     *string `json:"department"      binding:"omitempty,min=1,max=100"`
	OfficeLocation *string `json:"office_location" binding:"omitempty,max=100"`
}

// InstructorListRequest 教师列表查询参数
type InstructorListRequest struct {
	PaginationRequest
	Department string `form:"department" binding:"omitempty,max=100"`
	Keyword    string `form:"keyword"    binding:"omitempty,max=50"`
}

// InstructorResponse 教师档案响应
type InstructorResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Email          string  `json:"email,omitempty"`
	EmployeeNumber string  `json:"employee_number"`
	FullName       string  `json:"full_name"`
	Department     string  `json:"department"`
	HireDate       string  `json:"hire_date"`
	OfficeLocation *string `json:"office_location,omitempty"`
	IsActive       bool    `json:"is_active"`
	CreatedAt      string  `json:"created_at"`
}

// InstructorBrief 教师简要信息
type InstructorBrief struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
}
