package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/service"
	"github.com/izeinnn/University-management-system/pkg/response"
)

// StudentHandler 学生档案 HTTP 处理器
type StudentHandler struct {
	studentSvc    service.StudentService
	enrollmentSvc service.EnrollmentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService, enrollmentSvc service.EnrollmentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc, enrollmentSvc: enrollmentSvc}
}

// CreateStudent 创建学生档案（管理员，或学生本人建档）
// POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	student, err := h.studentSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.Created(c, student)
}

// ListStudents 学生列表（管理员 / 教师）
// GET /api/v1/students
func (h *StudentHandler) ListStudents(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	students, total, err := h.studentSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OKPage(c, students, total, req.GetPage(), req.GetPageSize())
}

// GetMyStudent 当前学生本人档案
// GET /api/v1/students/me
func (h *StudentHandler) GetMyStudent(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.GetMine(c.Request.Context(), caller)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, student)
}

// GetStudent 学生详情
// GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, student)
}

// UpdateStudent 更新学生档案
// PUT /api/v1/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	student, err := h.studentSvc.Update(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, student)
}

// DeleteStudent 删除学生档案（管理员）
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	if err := h.studentSvc.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListStudentEnrollments 学生的选课记录
// GET /api/v1/students/:id/enrollments
func (h *StudentHandler) ListStudentEnrollments(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.EnrollmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.StudentID = c.Param("id")

	enrollments, total, err := h.enrollmentSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OKPage(c, enrollments, total, req.GetPage(), req.GetPageSize())
}

func (h *StudentHandler) handleStudentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13001, "学生不存在")
	case errors.Is(err, service.ErrStudentNumberExists):
		response.Conflict(c, 13002, "学号已存在")
	case errors.Is(err, service.ErrProfileExists):
		response.Conflict(c, 13003, "该用户已有学生档案")
	case errors.Is(err, service.ErrRoleMismatch):
		response.UnprocessableEntity(c, 13004, "用户角色不是 student")
	case errors.Is(err, service.ErrStudentHasActiveEnrollments):
		response.Conflict(c, 13005, "学生仍有在读课程，无法删除")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 13006, "关联用户不存在")
	default:
		handleCommonError(c, err)
	}
}
