package handler

import "github.com/izeinnn/University-management-system/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Student    *StudentHandler
	Instructor *InstructorHandler
	Course     *CourseHandler
	Enrollment *EnrollmentHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Student:    NewStudentHandler(svc.Student, svc.Enrollment),
		Instructor: NewInstructorHandler(svc.Instructor, svc.Course),
		Course:     NewCourseHandler(svc.Course, svc.Enrollment),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
		Export:     NewExportHandler(svc.Export),
	}
}
