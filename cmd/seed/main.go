// seed 初始化示例数据：管理员、两名教师、三名学生、四门课程及选课记录
// 除管理员外全部经由 Service 层创建，与线上接口走同一套校验
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/config"
	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/internal/repository"
	"github.com/izeinnn/University-management-system/internal/service"
	"github.com/izeinnn/University-management-system/pkg/database"
	"github.com/izeinnn/University-management-system/pkg/jwt"
	applogger "github.com/izeinnn/University-management-system/pkg/logger"
)

const (
	defaultAdminPassword = "admin123"
	instructorPassword   = "instructor123"
	studentPassword      = "student123"
)

type seedInstructor struct {
	email, first, last, phone string
	number, department        string
	hireDate, office          string
}

type seedStudent struct {
	email, first, last, phone string
	number, dob, gender       string
	address, emergency        string
}

type seedCourse struct {
	code, title, description string
	credits, capacity        int
	instructor               string // 工号
}

var (
	instructors = []seedInstructor{
		{"john.smith@university.edu", "John", "Smith", "+1234567891", "EMP001", "Computer Science", "2015-08-20", "CS Building Room 101"},
		{"jane.doe@university.edu", "Jane", "Doe", "+1234567892", "EMP002", "Mathematics", "2017-01-09", "Math Building Room 201"},
	}
	students = []seedStudent{
		{"alice.johnson@student.university.edu", "Alice", "Johnson", "+1234567893", "STU001", "2000-05-15", "female", "123 University Ave, College Town", "+1234567896"},
		{"bob.wilson@student.university.edu", "Bob", "Wilson", "+1234567894", "STU002", "1999-08-22", "male", "456 Campus Dr, College Town", "+1234567897"},
		{"carol.brown@student.university.edu", "Carol", "Brown", "+1234567895", "STU003", "2001-02-10", "female", "789 Student St, College Town", "+1234567898"},
	}
	courses = []seedCourse{
		{"CS101", "Introduction to Programming", "Learn the fundamentals of programming using Python", 3, 25, "EMP001"},
		{"CS201", "Data Structures and Algorithms", "Advanced programming concepts and algorithm design", 4, 20, "EMP001"},
		{"MATH101", "Calculus I", "Introduction to differential calculus", 4, 30, "EMP002"},
		{"MATH201", "Linear Algebra", "Matrices, vector spaces, and linear transformations", 3, 25, "EMP002"},
	}
	// 学号 → 课程代码
	enrollments = map[string][]string{
		"STU001": {"CS101", "MATH101"},
		"STU002": {"CS101", "CS201"},
		"STU003": {"MATH101", "MATH201"},
	}
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwt.NewManager(&cfg.Auth), logger)

	if err := seed(context.Background(), cfg, repo, svc, logger); err != nil {
		logger.Fatal("示例数据初始化失败", zap.Error(err))
	}
}

func seed(ctx context.Context, cfg *config.Config, repo *repository.Repository, svc *service.Service, logger *zap.Logger) error {
	adminEmail := strings.ToLower(cfg.Seed.AdminEmail)
	if _, err := repo.User.GetByEmail(ctx, adminEmail); err == nil {
		logger.Info("管理员已存在，跳过初始化", zap.String("email", adminEmail))
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询管理员失败: %w", err)
	}

	adminPassword := cfg.Seed.AdminPassword
	if adminPassword == "" {
		adminPassword = defaultAdminPassword
		logger.Warn("未配置 seed.admin_password，使用默认密码")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("生成管理员密码哈希失败: %w", err)
	}
	phone := "+1234567890"
	admin := &model.User{
		Email:        adminEmail,
		PasswordHash: string(hash),
		Role:         authz.RoleAdmin,
		FirstName:    "Admin",
		LastName:     "User",
		Phone:        &phone,
		IsActive:     true,
	}
	if err := repo.User.Create(ctx, admin); err != nil {
		return fmt.Errorf("创建管理员失败: %w", err)
	}
	caller := authz.Subject{UserID: admin.UserID, Role: authz.RoleAdmin}

	// ── 教师 ──
	instructorIDs := make(map[string]string, len(instructors))
	for _, in := range instructors {
		user, err := svc.Auth.Register(ctx, &dto.RegisterRequest{
			Email:     in.email,
			Password:  instructorPassword,
			Role:      authz.RoleInstructor,
			FirstName: in.first,
			LastName:  in.last,
			Phone:     strPtr(in.phone),
		})
		if err != nil {
			return fmt.Errorf("注册教师 %s 失败: %w", in.email, err)
		}
		profile, err := svc.Instructor.Create(ctx, caller, &dto.CreateInstructorRequest{
			UserID:         user.ID,
			EmployeeNumber: in.number,
			FullName:       in.first + " " + in.last,
			Department:     in.department,
			HireDate:       strPtr(in.hireDate),
			OfficeLocation: strPtr(in.office),
		})
		if err != nil {
			return fmt.Errorf("创建教师档案 %s 失败: %w", in.number, err)
		}
		instructorIDs[in.number] = profile.ID
	}

	// ── 学生 ──
	studentIDs := make(map[string]string, len(students))
	for _, st := range students {
		user, err := svc.Auth.Register(ctx, &dto.RegisterRequest{
			Email:     st.email,
			Password:  studentPassword,
			Role:      authz.RoleStudent,
			FirstName: st.first,
			LastName:  st.last,
			Phone:     strPtr(st.phone),
		})
		if err != nil {
			return fmt.Errorf("注册学生 %s 失败: %w", st.email, err)
		}
		profile, err := svc.Student.Create(ctx, caller, &dto.CreateStudentRequest{
			UserID:           user.ID,
			StudentNumber:    st.number,
			FullName:         st.first + " " + st.last,
			DateOfBirth:      strPtr(st.dob),
			Gender:           strPtr(st.gender),
			Phone:            strPtr(st.phone),
			Address:          strPtr(st.address),
			EmergencyContact: strPtr(st.emergency),
		})
		if err != nil {
			return fmt.Errorf("创建学生档案 %s 失败: %w", st.number, err)
		}
		studentIDs[st.number] = profile.ID
	}

	// ── 课程 ──
	courseIDs := make(map[string]string, len(courses))
	for _, co := range courses {
		course, err := svc.Course.Create(ctx, caller, &dto.CreateCourseRequest{
			Code:         co.code,
			Title:        co.title,
			Description:  strPtr(co.description),
			Credits:      co.credits,
			Capacity:     co.capacity,
			InstructorID: strPtr(instructorIDs[co.instructor]),
			Status:       model.CourseStatusActive,
		})
		if err != nil {
			return fmt.Errorf("创建课程 %s 失败: %w", co.code, err)
		}
		courseIDs[co.code] = course.ID
	}

	// ── 选课 ──
	total := 0
	for _, st := range students {
		for _, code := range enrollments[st.number] {
			if _, err := svc.Enrollment.Enroll(ctx, caller, &dto.CreateEnrollmentRequest{
				StudentID: studentIDs[st.number],
				CourseID:  courseIDs[code],
			}); err != nil {
				return fmt.Errorf("%s 选修 %s 失败: %w", st.number, code, err)
			}
			total++
		}
	}

	logger.Info("示例数据初始化完成",
		zap.Int("instructors", len(instructors)),
		zap.Int("students", len(students)),
		zap.Int("courses", len(courses)),
		zap.Int("enrollments", total),
	)
	fmt.Println("示例账号:")
	fmt.Printf("  管理员: %s / %s\n", adminEmail, adminPassword)
	for _, in := range instructors {
		fmt.Printf("  教师:   %s / %s\n", in.email, instructorPassword)
	}
	for _, st := range students {
		fmt.Printf("  学生:   %s / %s\n", st.email, studentPassword)
	}
	return nil
}

func strPtr(s string) *string { return &s }
