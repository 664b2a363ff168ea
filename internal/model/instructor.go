package model

import "gorm.io/datatypes"

// Instructor 教师档案 — 对应 instructors，与 users 一对一
type Instructor struct {
	InstructorID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"instructor_id"`
	UserID         string         `gorm:"type:uuid;not null"                             json:"user_id"`
	EmployeeNumber string         `gorm:"type:varchar(20);not null"                      json:"employee_number"`
	FullName       string         `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Department     string         `gorm:"type:varchar(100);not null"                     json:"department"`
	HireDate       datatypes.Date `gorm:"type:date;not null"                             json:"hire_date"`
	OfficeLocation *string        `gorm:"type:varchar(100)"                              json:"office_location,omitempty"`
	IsActive       bool           `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Instructor) TableName() string { return "instructors" }
