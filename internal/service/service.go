package service

import (
	"go.uber.org/zap"

	"github.com/izeinnn/University-management-system/config"
	"github.com/izeinnn/University-management-system/internal/repository"
	"github.com/izeinnn/University-management-system/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Student    StudentService
	Instructor InstructorService
	Course     CourseService
	Enrollment EnrollmentService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, logger),
		User:       NewUserService(repo, logger),
		Student:    NewStudentService(repo, logger),
		Instructor: NewInstructorService(repo, logger),
		Course:     NewCourseService(repo, logger),
		Enrollment: NewEnrollmentService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}
