package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/model"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// ── 通用业务错误 ──

var (
	ErrNoPermission = fmt.Errorf("%w: 无权执行该操作", pkgerrors.ErrForbidden)
	ErrInvalidDate  = fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD", pkgerrors.ErrValidation)
)

// authorize 每次调用都重新判定，不缓存结果
func authorize(caller authz.Subject, act authz.Action, tgt authz.Target) (authz.Decision, error) {
	d := authz.Evaluate(caller, act, tgt)
	if !d.Allowed {
		return d, ErrNoPermission
	}
	return d, nil
}

func parseDate(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(dto.DateLayout, s, time.UTC)
	if err != nil {
		return datatypes.Date{}, ErrInvalidDate
	}
	return datatypes.Date(t), nil
}

func parseOptionalDate(s *string) (*datatypes.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatDate(d datatypes.Date) string {
	return time.Time(d).Format(dto.DateLayout)
}

func formatOptionalDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := formatDate(*d)
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func today() datatypes.Date {
	y, m, d := time.Now().UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ── Model → DTO ──

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.UserID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toStudentResponse(s *model.Student) dto.StudentResponse {
	resp := dto.StudentResponse{
		ID:               s.StudentID,
		UserID:           s.UserID,
		StudentNumber:    s.StudentNumber,
		FullName:         s.FullName,
		DateOfBirth:      formatOptionalDate(s.DateOfBirth),
		Gender:           s.Gender,
		Phone:            s.Phone,
		Address:          s.Address,
		EmergencyContact: s.EmergencyContact,
		EnrollmentDate:   formatDate(s.EnrollmentDate),
		IsActive:         s.IsActive,
		CreatedAt:        formatTime(s.CreatedAt),
	}
	if s.User != nil {
		resp.Email = s.User.Email
	}
	return resp
}

func toInstructorResponse(i *model.Instructor) dto.InstructorResponse {
	resp := dto.InstructorResponse{
		ID:             i.InstructorID,
		UserID:         i.UserID,
		EmployeeNumber: i.EmployeeNumber,
		FullName:       i.FullName,
		Department:     i.Department,
		HireDate:       formatDate(i.HireDate),
		OfficeLocation: i.OfficeLocation,
		IsActive:       i.IsActive,
		CreatedAt:      formatTime(i.CreatedAt),
	}
	if i.User != nil {
		resp.Email = i.User.Email
	}
	return resp
}

func toCourseResponse(c *model.Course, enrolled int64) dto.CourseResponse {
	resp := dto.CourseResponse{
		ID:            c.CourseID,
		Code:          c.Code,
		Title:         c.Title,
		Description:   c.Description,
		Credits:       c.Credits,
		Capacity:      c.Capacity,
		EnrolledCount: enrolled,
		Status:        c.Status,
		CreatedAt:     formatTime(c.CreatedAt),
	}
	if c.Instructor != nil {
		resp.Instructor = &dto.InstructorBrief{
			ID:         c.Instructor.InstructorID,
			FullName:   c.Instructor.FullName,
			Department: c.Instructor.Department,
		}
	}
	return resp
}

func toEnrollmentResponse(e *model.Enrollment) dto.EnrollmentResponse {
	resp := dto.EnrollmentResponse{
		ID:          e.EnrollmentID,
		StudentID:   e.StudentID,
		CourseID:    e.CourseID,
		Status:      e.Status,
		Grade:       e.Grade,
		EnrolledAt:  formatTime(e.EnrolledAt),
		DroppedAt:   formatOptionalTime(e.DroppedAt),
		CompletedAt: formatOptionalTime(e.CompletedAt),
		Version:     e.Version,
	}
	if e.Student != nil {
		resp.Student = &dto.StudentBrief{
			ID:            e.Student.StudentID,
			StudentNumber: e.Student.StudentNumber,
			FullName:      e.Student.FullName,
		}
	}
	if e.Course != nil {
		resp.Course = &dto.CourseBrief{
			ID:    e.Course.CourseID,
			Code:  e.Course.Code,
			Title: e.Course.Title,
		}
	}
	return resp
}

// enrollmentTarget 选课记录的归属：学生所属用户 + 课程授课教师用户
func enrollmentTarget(e *model.Enrollment) authz.Target {
	tgt := authz.Target{Resource: authz.ResourceEnrollment}
	if e.Student != nil {
		tgt.OwnerID = e.Student.UserID
	}
	if e.Course != nil {
		tgt.InstructorID = e.Course.InstructorUserID()
	}
	return tgt
}

// isBusinessError 属于错误分类体系内的业务错误（无需记录错误日志）
func isBusinessError(err error) bool {
	return errors.Is(err, pkgerrors.ErrUnauthenticated) ||
		errors.Is(err, pkgerrors.ErrForbidden) ||
		errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrConflict)
}
