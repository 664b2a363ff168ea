package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/service"
	"github.com/izeinnn/University-management-system/pkg/response"
)

// InstructorHandler 教师档案 HTTP 处理器
type InstructorHandler struct {
	instructorSvc service.InstructorService
	courseSvc     service.CourseService
}

// NewInstructorHandler 创建 InstructorHandler
func NewInstructorHandler(instructorSvc service.InstructorService, courseSvc service.CourseService) *InstructorHandler {
	return &InstructorHandler{instructorSvc: instructorSvc, courseSvc: courseSvc}
}

// CreateInstructor 创建教师档案（管理员）
// POST /api/v1/instructors
func (h *InstructorHandler) CreateInstructor(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.CreateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	instructor, err := h.instructorSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.Created(c, instructor)
}

// ListInstructors 教师列表
// GET /api/v1/instructors
func (h *InstructorHandler) ListInstructors(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.InstructorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	instructors, total, err := h.instructorSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OKPage(c, instructors, total, req.GetPage(), req.GetPageSize())
}

// GetMyInstructor 当前教师本人档案
// GET /api/v1/instructors/me
func (h *InstructorHandler) GetMyInstructor(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	instructor, err := h.instructorSvc.GetMine(c.Request.Context(), caller)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, instructor)
}

// GetInstructor 教师详情
// GET /api/v1/instructors/:id
func (h *InstructorHandler) GetInstructor(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	instructor, err := h.instructorSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, instructor)
}

// UpdateInstructor 更新教师档案（管理员或本人）
// PUT /api/v1/instructors/:id
func (h *InstructorHandler) UpdateInstructor(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.UpdateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	instructor, err := h.instructorSvc.Update(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, instructor)
}

// DeleteInstructor 删除教师档案（管理员）
// DELETE /api/v1/instructors/:id
func (h *InstructorHandler) DeleteInstructor(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	if err := h.instructorSvc.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListInstructorCourses 教师的授课课程
// GET /api/v1/instructors/:id/courses
func (h *InstructorHandler) ListInstructorCourses(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.InstructorID = c.Param("id")

	courses, total, err := h.courseSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OKPage(c, courses, total, req.GetPage(), req.GetPageSize())
}

func (h *InstructorHandler) handleInstructorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInstructorNotFound):
		response.NotFound(c, 14001, "教师不存在")
	case errors.Is(err, service.ErrEmployeeNumberExists):
		response.Conflict(c, 14002, "工号已存在")
	case errors.Is(err, service.ErrProfileExists):
		response.Conflict(c, 14003, "该用户已有教师档案")
	case errors.Is(err, service.ErrRoleMismatch):
		response.UnprocessableEntity(c, 14004, "用户角色不是 instructor")
	case errors.Is(err, service.ErrInstructorHasCourses):
		response.Conflict(c, 14005, "教师仍有授课课程，无法删除")
	case errors.Is(err, service.ErrInstructorProfileMissing):
		response.NotFound(c, 14006, "当前用户没有教师档案")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 14007, "关联用户不存在")
	default:
		handleCommonError(c, err)
	}
}
