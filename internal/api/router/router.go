package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/config"
	"github.com/izeinnn/University-management-system/internal/api/handler"
	"github.com/izeinnn/University-management-system/internal/api/middleware"
	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时认证接口不限流；db 为 nil 时健康检查不探测数据库
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, userLoader middleware.UserLoader, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authLimit := middleware.RateLimit(limiter, cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authLimit, h.Auth.Register)
			auth.POST("/login", authLimit, h.Auth.Login)
		}

		// 需要认证的路由，资源级权限在 Service 层判定
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr), middleware.ResolveUser(userLoader, logger))
		{
			// 认证模块（需要认证）
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth(authz.RoleAdmin), h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser) // admin 或本人
				users.PUT("/:id/role", middleware.RoleAuth(authz.RoleAdmin), h.User.AssignRole)
				users.PUT("/:id/status", middleware.RoleAuth(authz.RoleAdmin), h.User.UpdateStatus)
			}

			// 学生模块
			students := authorized.Group("/students")
			{
				students.POST("", h.Student.CreateStudent)
				students.GET("", h.Student.ListStudents)
				students.GET("/me", h.Student.GetMyStudent)
				students.GET("/:id", h.Student.GetStudent)
				students.PUT("/:id", h.Student.UpdateStudent)
				students.DELETE("/:id", middleware.RoleAuth(authz.RoleAdmin), h.Student.DeleteStudent)
				students.GET("/:id/enrollments", h.Student.ListStudentEnrollments)
			}

			// 教师模块
			instructors := authorized.Group("/instructors")
			{
				instructors.POST("", middleware.RoleAuth(authz.RoleAdmin), h.Instructor.CreateInstructor)
				instructors.GET("", h.Instructor.ListInstructors)
				instructors.GET("/me", h.Instructor.GetMyInstructor)
				instructors.GET("/:id", h.Instructor.GetInstructor)
				instructors.PUT("/:id", h.Instructor.UpdateInstructor)
				instructors.DELETE("/:id", middleware.RoleAuth(authz.RoleAdmin), h.Instructor.DeleteInstructor)
				instructors.GET("/:id/courses", h.Instructor.ListInstructorCourses)
			}

			// 课程模块
			courses := authorized.Group("/courses")
			{
				courses.POST("", middleware.RoleAuth(authz.RoleAdmin), h.Course.CreateCourse)
				courses.GET("", h.Course.ListCourses)
				courses.GET("/:id", h.Course.GetCourse)
				courses.PUT("/:id", h.Course.UpdateCourse)
				courses.DELETE("/:id", middleware.RoleAuth(authz.RoleAdmin), h.Course.DeleteCourse)
				courses.GET("/:id/enrollments", h.Course.ListCourseEnrollments)
				courses.GET("/:id/roster.xlsx", h.Export.ExportRoster)
			}

			// 选课模块
			enrollments := authorized.Group("/enrollments")
			{
				enrollments.POST("", h.Enrollment.Enroll)
				enrollments.GET("", h.Enrollment.ListEnrollments)
				enrollments.GET("/:id", h.Enrollment.GetEnrollment)
				enrollments.PUT("/:id", h.Enrollment.UpdateEnrollment)
				enrollments.DELETE("/:id", middleware.RoleAuth(authz.RoleAdmin), h.Enrollment.DeleteEnrollment)
			}
		}
	}

	return r
}
