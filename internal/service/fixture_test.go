package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/izeinnn/University-management-system/config"
	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/internal/repository"
	"github.com/izeinnn/University-management-system/pkg/jwt"
)

const testPassword = "password123"

// testEnv 组装 Service 聚合与内存存储，所有测试共用
type testEnv struct {
	t      *testing.T
	ctx    context.Context
	repo   *repository.Repository
	store  *memStore
	svc    *Service
	jwtMgr *jwt.Manager
	admin  authz.Subject
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-key-for-unit-testing-2026",
			JWTAlgorithm:   "HS256",
			AccessTokenTTL: 15 * time.Minute,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	repo, store := newMockRepository()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewService(cfg, repo, jwtMgr, zap.NewNop())
	svc.Auth.(*authService).bcryptCost = bcrypt.MinCost

	env := &testEnv{t: t, ctx: context.Background(), repo: repo, store: store, svc: svc, jwtMgr: jwtMgr}
	env.admin = env.addUser(authz.RoleAdmin, "admin@university.edu")
	return env
}

// addUser 直接写入用户，密码统一为 testPassword
func (e *testEnv) addUser(role, email string) authz.Subject {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		e.t.Fatalf("生成密码哈希失败: %v", err)
	}
	u := &model.User{
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    "Test",
		LastName:     role,
		IsActive:     true,
	}
	if err := e.repo.User.Create(e.ctx, u); err != nil {
		e.t.Fatalf("创建用户失败: %v", err)
	}
	return authz.Subject{UserID: u.UserID, Role: u.Role}
}

func (e *testEnv) addStudent(number string) (authz.Subject, *model.Student) {
	e.t.Helper()
	sub := e.addUser(authz.RoleStudent, number+"@student.edu")
	st := &model.Student{
		UserID:         sub.UserID,
		StudentNumber:  number,
		FullName:       "Student " + number,
		EnrollmentDate: datatypes.Date(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)),
		IsActive:       true,
	}
	if err := e.repo.Student.Create(e.ctx, st); err != nil {
		e.t.Fatalf("创建学生失败: %v", err)
	}
	return sub, st
}

func (e *testEnv) addInstructor(number string) (authz.Subject, *model.Instructor) {
	e.t.Helper()
	sub := e.addUser(authz.RoleInstructor, number+"@faculty.edu")
	in := &model.Instructor{
		UserID:         sub.UserID,
		EmployeeNumber: number,
		FullName:       "Instructor " + number,
		Department:     "Computer Science",
		HireDate:       datatypes.Date(time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)),
		IsActive:       true,
	}
	if err := e.repo.Instructor.Create(e.ctx, in); err != nil {
		e.t.Fatalf("创建教师失败: %v", err)
	}
	return sub, in
}

func (e *testEnv) addCourse(code string, capacity int, instructor *model.Instructor) *model.Course {
	e.t.Helper()
	c := &model.Course{
		Code:     code,
		Title:    "Course " + code,
		Credits:  3,
		Capacity: capacity,
		Status:   model.CourseStatusActive,
	}
	if instructor != nil {
		c.InstructorID = &instructor.InstructorID
	}
	if err := e.repo.Course.Create(e.ctx, c); err != nil {
		e.t.Fatalf("创建课程失败: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
