package dto

// ── 课程模块 DTO ──

// CreateCourseRequest 创建课程
type CreateCourseRequest struct {
	Code         string  `json:"code"          binding:"required,course_code"`
	Title        string  `json:"title"         binding:"required,max=200"`
	Description  *string `json:"description"   binding:"omitempty,max=2000"`
	Credits      int     `json:"credits"       binding:"required,min=1,max=30"`
	Capacity     int     `json:"capacity"      binding:"required,min=1,max=1000"`
	InstructorID *string `json:"instructor_id" binding:"omitempty,eq=|uuid"`
	Status       string  `json:"status"        binding:"omitempty,oneof=active inactive completed"`
}

// UpdateCourseRequest 更新课程（仅更新非 nil 字段）
type UpdateCourseRequest struct {
	Title        *string `json:"title"         binding:"omitempty,min=1,max=200"`
	Description  *string `json:"description"   binding:"omitempty,max=2000"`
	Credits      *int    `json:"credits"       binding:"omitempty,min=1,max=30"`
	Capacity     *int    `json:"capacity"      binding:"omitempty,min=1,max=1000"`
	InstructorID *string `json:"instructor_id" binding:"omitempty,eq=|uuid"`
	Status       *string `json:"status"        binding:"omitempty,oneof=active inactive completed"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	PaginationRequest
	Status       string `form:"status"        binding:"omitempty,oneof=active inactive completed"`
	InstructorID string `form:"instructor_id" binding:"omitempty,uuid"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=50"`
}

// DeleteCourseRequest 删除课程参数
type DeleteCourseRequest struct {
	Force bool `form:"force"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Title         string           `json:"title"`
	Description   *string          `json:"description,omitempty"`
	Credits       int              `json:"credits"`
	Capacity      int              `json:"capacity"`
	EnrolledCount int64            `json:"enrolled_count"`
	Status        string           `json:"status"`
	Instructor    *InstructorBrief `json:"instructor,omitempty"`
	CreatedAt     string           `json:"created_at"`
}

// CourseBrief 课程简要信息
type CourseBrief struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}
