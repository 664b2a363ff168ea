package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/model"
)

// StudentListFilters 学生列表过滤条件
type StudentListFilters struct {
	Keyword  string
	IsActive *bool
}

// StudentRepository 学生档案数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByUserID(ctx context.Context, userID string) (*model.Student, error)
	GetByNumber(ctx context.Context, number string) (*model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	Delete(ctx context.Context, id string, deletedBy string) error
	List(ctx context.Context, filters *StudentListFilters, offset, limit int) ([]model.Student, int64, error)
	// SetActiveByUser 账号启停时同步档案状态
	SetActiveByUser(ctx context.Context, userID string, active bool) error
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByUserID(ctx context.Context, userID string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByNumber(ctx context.Context, number string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_number = ?", number).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Omit("User").Save(student).Error
}

func (r *studentRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *studentRepo) List(ctx context.Context, filters *StudentListFilters, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Student{})
	if filters != nil {
		if filters.IsActive != nil {
			db = db.Where("is_active = ?", *filters.IsActive)
		}
		if filters.Keyword != "" {
			like := "%" + filters.Keyword + "%"
			db = db.Where("student_number ILIKE ? OR full_name ILIKE ?", like, like)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("User").
		Offset(offset).Limit(limit).
		Order("student_number ASC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepo) SetActiveByUser(ctx context.Context, userID string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("user_id = ?", userID).
		Update("is_active", active).Error
}
