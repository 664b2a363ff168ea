package dto

// ── 选课模块 DTO ──

// CreateEnrollmentRequest 选课请求
// 学生本人选课时 student_id 可省略，默认使用调用者的学生档案
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" binding:"omitempty,uuid"`
	CourseID  string `json:"course_id"  binding:"required,uuid"`
}

// UpdateEnrollmentRequest 变更选课状态，grade 仅在 status=completed 时允许
type UpdateEnrollmentRequest struct {
	Status string  `json:"status" binding:"required,oneof=active dropped completed"`
	Grade  *string `json:"grade"  binding:"omitempty,grade"`
}

// EnrollmentListRequest 选课列表查询参数
type EnrollmentListRequest struct {
	PaginationRequest
	StudentID string `form:"student_id" binding:"omitempty,uuid"`
	CourseID  string `form:"course_id"  binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=active dropped completed"`
}

// EnrollmentResponse 选课记录响应
type EnrollmentResponse struct {
	ID          string        `json:"id"`
	StudentID   string        `json:"student_id"`
	CourseID    string        `json:"course_id"`
	Status      string        `json:"status"`
	Grade       *string       `json:"grade,omitempty"`
	EnrolledAt  string        `json:"enrolled_at"`
	DroppedAt   *string       `json:"dropped_at,omitempty"`
	CompletedAt *string       `json:"completed_at,omitempty"`
	Version     int           `json:"version"`
	Student     *StudentBrief `json:"student,omitempty"`
	Course      *CourseBrief  `json:"course,omitempty"`
}
