package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/service"
	"github.com/izeinnn/University-management-system/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc     service.CourseService
	enrollmentSvc service.EnrollmentService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService, enrollmentSvc service.EnrollmentService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc, enrollmentSvc: enrollmentSvc}
}

// CreateCourse 创建课程（管理员）
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// ListCourses 课程目录
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	courses, total, err := h.courseSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OKPage(c, courses, total, req.GetPage(), req.GetPageSize())
}

// GetCourse 课程详情（含在读人数）
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// UpdateCourse 更新课程（管理员或授课教师）
// PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// DeleteCourse 删除课程（管理员），有在读学生时需 force=true
// DELETE /api/v1/courses/:id?force=true
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.DeleteCourseRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), caller, c.Param("id"), req.Force); err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListCourseEnrollments 课程下的选课记录
// GET /api/v1/courses/:id/enrollments
func (h *CourseHandler) ListCourseEnrollments(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.EnrollmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.CourseID = c.Param("id")

	enrollments, total, err := h.enrollmentSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OKPage(c, enrollments, total, req.GetPage(), req.GetPageSize())
}

func handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 15001, "课程不存在")
	case errors.Is(err, service.ErrCourseCodeExists):
		response.Conflict(c, 15002, "课程代码已存在")
	case errors.Is(err, service.ErrInvalidInstructor):
		response.UnprocessableEntity(c, 15003, "授课教师不存在或已停用")
	case errors.Is(err, service.ErrCapacityBelowEnrolled):
		response.Conflict(c, 15004, "容量不能低于当前在读人数")
	case errors.Is(err, service.ErrCourseHasActiveEnrollments):
		response.Conflict(c, 15005, "课程仍有在读学生，如需删除请使用 force=true")
	case errors.Is(err, service.ErrInstructorReassignForbidden):
		response.Forbidden(c, 15006, "仅管理员可更换授课教师")
	default:
		handleCommonError(c, err)
	}
}
