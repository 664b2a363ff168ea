package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/service"
	"github.com/izeinnn/University-management-system/pkg/response"
)

// EnrollmentHandler 选课模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// Enroll 选课
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	enrollment, err := h.enrollmentSvc.Enroll(c.Request.Context(), caller, &req)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// ListEnrollments 选课列表（按调用者可见范围）
// GET /api/v1/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.EnrollmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	enrollments, total, err := h.enrollmentSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OKPage(c, enrollments, total, req.GetPage(), req.GetPageSize())
}

// GetEnrollment 选课详情
// GET /api/v1/enrollments/:id
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OK(c, enrollment)
}

// UpdateEnrollment 退课 / 结课登记成绩
// PUT /api/v1/enrollments/:id
func (h *EnrollmentHandler) UpdateEnrollment(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	var req dto.UpdateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	enrollment, err := h.enrollmentSvc.UpdateStatus(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OK(c, enrollment)
}

// DeleteEnrollment 删除选课记录（管理员）
// DELETE /api/v1/enrollments/:id
func (h *EnrollmentHandler) DeleteEnrollment(c *gin.Context) {
	caller, ok := MustGetSubject(c)
	if !ok {
		return
	}

	if err := h.enrollmentSvc.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OK(c, nil)
}

func handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 16001, "选课记录不存在")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Conflict(c, 16002, "已选修该课程")
	case errors.Is(err, service.ErrCourseFull):
		response.Conflict(c, 16003, "课程人数已满")
	case errors.Is(err, service.ErrCourseNotOpen):
		response.Conflict(c, 16004, "课程当前不接受选课")
	case errors.Is(err, service.ErrStudentInactive):
		response.Conflict(c, 16005, "学生档案已停用")
	case errors.Is(err, service.ErrInvalidTransition):
		response.UnprocessableEntity(c, 16006, "不允许的选课状态变更")
	case errors.Is(err, service.ErrGradeRequired):
		response.UnprocessableEntity(c, 16007, "结课时必须给出成绩")
	case errors.Is(err, service.ErrGradeNotAllowed):
		response.UnprocessableEntity(c, 16008, "仅在结课时可以登记成绩")
	case errors.Is(err, service.ErrStudentIDRequired):
		response.UnprocessableEntity(c, 16009, "student_id 不能为空")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 16010, "学生不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 16011, "课程不存在")
	default:
		handleCommonError(c, err)
	}
}
