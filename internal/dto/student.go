package dto

// ── 学生模块 DTO ──

// CreateStudentRequest 创建学生档案
type CreateStudentRequest struct {
	UserID           string  `json:"user_id"           binding:"required,uuid"`
	StudentNumber    string  `json:"student_number"    binding:"required,alphanum,max=20"`
	FullName         string  `json:"full_name"         binding:"required,max=100"`
	DateOfBirth      *string `json:"date_of_birth"     binding:"omitempty,datetime=2006-01-02"`
	Gender           *string `json:"gender"            binding:"omitempty,oneof=male female other"`
	Phone            *string `json:"phone"             binding:"omitempty,max=30"`
	Address          *string `json:"address"           binding:"omitempty,max=500"`
	EmergencyContact *string `json:"emergency_contact" binding:"omitempty,max=100"`
	EnrollmentDate   *string `json:"enrollment_date"   binding:"omitempty,datetime=2006-01-02"`
}

// UpdateStudentRequest 更新学生档案（仅更新非 nil 字段）
type UpdateStudentRequest struct {
	FullName         *string `json:"full_name"         binding:"omitempty,min=1,max=100"`
	DateOfBirth      *string `json:"date_of_birth"     binding:"omitempty,datetime=2006-01-02"`
	Gender           *string `json:"gender"            binding:"omitempty,oneof=male female other"`
	Phone            *string `json:"phone"             binding:"omitempty,max=30"`
	Address          *string `json:"address"           binding:"omitempty,max=500"`
	EmergencyContact *string `json:"emergency_contact" binding:"omitempty,max=100"`
}

// StudentListRequest 学生列表查询参数
type StudentListRequest struct {
	PaginationRequest
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
	IsActive *bool  `form:"is_active"`
}

// StudentResponse 学生档案响应
type StudentResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	Email            string  `json:"email,omitempty"`
	StudentNumber    string  `json:"student_number"`
	FullName         string  `json:"full_name"`
	DateOfBirth      *string `json:"date_of_birth,omitempty"`
	Gender           *string `json:"gender,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Address          *string `json:"address,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	EnrollmentDate   string  `json:"enrollment_date"`
	IsActive         bool    `json:"is_active"`
	CreatedAt        string  `json:"created_at"`
}

// StudentBrief 学生简要信息
type StudentBrief struct {
	ID            string `json:"id"`
	StudentNumber string `json:"student_number"`
	FullName      string `json:"full_name"`
}
