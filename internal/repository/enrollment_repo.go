package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/izeinnn/University-management-system/internal/model"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// EnrollmentListFilters 选课列表过滤条件
// InstructorID 非空时只返回该教师（instructors.instructor_id）授课课程下的记录
type EnrollmentListFilters struct {
	StudentID    string
	CourseID     string
	Status       string
	InstructorID string
}

// EnrollmentRepository 选课数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	// GetByIDForUpdate 锁定选课行，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Enrollment, error)
	// FindOpen 查询 (学生, 课程) 下未退课的记录
	FindOpen(ctx context.Context, studentID, courseID string) (*model.Enrollment, error)
	CountActiveByCourse(ctx context.Context, courseID string) (int64, error)
	CountActiveByCourses(ctx context.Context, courseIDs []string) (map[string]int64, error)
	CountActiveByStudent(ctx context.Context, studentID string) (int64, error)
	// Update 乐观锁更新，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, enrollment *model.Enrollment) error
	// DropActiveByCourse 将课程下全部在读记录置为 dropped，返回影响行数
	DropActiveByCourse(ctx context.Context, courseID string, updatedBy string, at time.Time) (int64, error)
	Delete(ctx context.Context, id string, deletedBy string) error
	List(ctx context.Context, filters *EnrollmentListFilters, offset, limit int) ([]model.Enrollment, int64, error)
	// ListRoster 课程名单（不含 dropped），按学号排序
	ListRoster(ctx context.Context, courseID string) ([]model.Enrollment, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Omit("Student", "Course").Create(enrollment).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Course").Preload("Course.Instructor").
		Where("enrollment_id = ?", id).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("enrollment_id = ?", id).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}

	// 关联数据单独加载，不参与行锁
	var related model.Enrollment
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Course").Preload("Course.Instructor").
		Where("enrollment_id = ?", id).
		First(&related).Error; err != nil {
		return nil, err
	}
	enrollment.Student = related.Student
	enrollment.Course = related.Course
	return &enrollment, nil
}

func (r *enrollmentRepo) FindOpen(ctx context.Context, studentID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND status <> ?", studentID, courseID, model.EnrollmentStatusDropped).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) CountActiveByCourse(ctx context.Context, courseID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, model.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepo) CountActiveByCourses(ctx context.Context, courseIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		CourseID string
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Select("course_id, COUNT(*) AS count").
		Where("course_id IN ? AND status = ?", courseIDs, model.EnrollmentStatusActive).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.CourseID] = row.Count
	}
	return result, nil
}

func (r *enrollmentRepo) CountActiveByStudent(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepo) Update(ctx context.Context, enrollment *model.Enrollment) error {
	oldVersion := enrollment.Version
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ? AND version = ?", enrollment.EnrollmentID, oldVersion).
		Updates(map[string]interface{}{
			"status":       enrollment.Status,
			"grade":        enrollment.Grade,
			"dropped_at":   enrollment.DroppedAt,
			"completed_at": enrollment.CompletedAt,
			"updated_by":   enrollment.UpdatedBy,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	enrollment.Version = oldVersion + 1
	return nil
}

func (r *enrollmentRepo) DropActiveByCourse(ctx context.Context, courseID string, updatedBy string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, model.EnrollmentStatusActive).
		Updates(map[string]interface{}{
			"status":     model.EnrollmentStatusDropped,
			"dropped_at": at,
			"updated_by": updatedBy,
			"version":    gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *enrollmentRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *enrollmentRepo) List(ctx context.Context, filters *EnrollmentListFilters, offset, limit int) ([]model.Enrollment, int64, error) {
	var enrollments []model.Enrollment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Enrollment{})
	if filters != nil {
		if filters.StudentID != "" {
			db = db.Where("student_id = ?", filters.StudentID)
		}
		if filters.CourseID != "" {
			db = db.Where("course_id = ?", filters.CourseID)
		}
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.InstructorID != "" {
			db = db.Where("course_id IN (?)",
				r.db.Model(&model.Course{}).Select("course_id").Where("instructor_id = ?", filters.InstructorID))
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Student").Preload("Course").
		Offset(offset).Limit(limit).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}

	return enrollments, total, nil
}

func (r *enrollmentRepo) ListRoster(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Joins("Student").
		Where("enrollments.course_id = ? AND enrollments.status <> ?", courseID, model.EnrollmentStatusDropped).
		Order(`"Student"."student_number" ASC`).
		Find(&enrollments).Error
	return enrollments, err
}
