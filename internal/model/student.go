package model

import "gorm.io/datatypes"

// Student 学生档案 — 对应 students，与 users 一对一
type Student struct {
	StudentID        string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	UserID           string          `gorm:"type:uuid;not null"                             json:"user_id"`
	StudentNumber    string          `gorm:"type:varchar(20);not null"                      json:"student_number"`
	FullName         string          `gorm:"type:varchar(100);not null"                     json:"full_name"`
	DateOfBirth      *datatypes.Date `gorm:"type:date"                                      json:"date_of_birth,omitempty"`
	Gender           *string         `gorm:"type:varchar(10)"                               json:"gender,omitempty"`
	Phone            *string         `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	Address          *string         `gorm:"type:text"                                      json:"address,omitempty"`
	EmergencyContact *string         `gorm:"type:varchar(100)"                              json:"emergency_contact,omitempty"`
	EnrollmentDate   datatypes.Date  `gorm:"type:date;not null"                             json:"enrollment_date"`
	IsActive         bool            `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
