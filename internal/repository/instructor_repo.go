package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/model"
)

// InstructorListFilters 教师列表过滤条件
type InstructorListFilters struct {
	Department string
	Keyword    string
}

// InstructorRepository 教师档案数据访问接口
type InstructorRepository interface {
	Create(ctx context.Context, instructor *model.Instructor) error
	GetByID(ctx context.Context, id string) (*model.Instructor, error)
	GetByUserID(ctx context.Context, userID string) (*model.Instructor, error)
	GetByNumber(ctx context.Context, number string) (*model.Instructor, error)
	Update(ctx context.Context, instructor *model.Instructor) error
	Delete(ctx context.Context, id string, deletedBy string) error
	List(ctx context.Context, filters *InstructorListFilters, offset, limit int) ([]model.Instructor, int64, error)
	SetActiveByUser(ctx context.Context, userID string, active bool) error
}

type instructorRepo struct {
	db *gorm.DB
}

// NewInstructorRepo 创建 InstructorRepository 实例
func NewInstructorRepo(db *gorm.DB) InstructorRepository {
	return &instructorRepo{db: db}
}

func (r *instructorRepo) Create(ctx context.Context, instructor *model.Instructor) error {
	return r.db.WithContext(ctx).Create(instructor).Error
}

func (r *instructorRepo) GetByID(ctx context.Context, id string) (*model.Instructor, error) {
	var instructor model.Instructor
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("instructor_id = ?", id).
		First(&instructor).Error
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (r *instructorRepo) GetByUserID(ctx context.Context, userID string) (*model.Instructor, error) {
	var instructor model.Instructor
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&instructor).Error
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (r *instructorRepo) GetByNumber(ctx context.Context, number string) (*model.Instructor, error) {
	var instructor model.Instructor
	err := r.db.WithContext(ctx).
		Where("employee_number = ?", number).
		First(&instructor).Error
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (r *instructorRepo) Update(ctx context.Context, instructor *model.Instructor) error {
	return r.db.WithContext(ctx).Omit("User").Save(instructor).Error
}

func (r *instructorRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Instructor{}).
		Where("instructor_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *instructorRepo) List(ctx context.Context, filters *InstructorListFilters, offset, limit int) ([]model.Instructor, int64, error) {
	var instructors []model.Instructor
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Instructor{})
	if filters != nil {
		if filters.Department != "" {
			db = db.Where("department = ?", filters.Department)
		}
		if filters.Keyword != "" {
			like := "%" + filters.Keyword + "%"
			db = db.Where("employee_number ILIKE ? OR full_name ILIKE ?", like, like)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("User").
		Offset(offset).Limit(limit).
		Order("employee_number ASC").
		Find(&instructors).Error; err != nil {
		return nil, 0, err
	}

	return instructors, total, nil
}

func (r *instructorRepo) SetActiveByUser(ctx context.Context, userID string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Instructor{}).
		Where("user_id = ?", userID).
		Update("is_active", active).Error
}
