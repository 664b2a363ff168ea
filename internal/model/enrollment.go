package model

import "time"

// 选课状态
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusDropped   = "dropped"
	EnrollmentStatusCompleted = "completed"
)

// Enrollment 选课记录 — 对应 enrollments
// 同一 (StudentID, CourseID) 至多一条非 dropped 记录
type Enrollment struct {
	EnrollmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	StudentID    string     `gorm:"type:uuid;not null"                             json:"student_id"`
	CourseID     string     `gorm:"type:uuid;not null"                             json:"course_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	Grade        *string    `gorm:"type:varchar(5)"                                json:"grade,omitempty"`
	EnrolledAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"enrolled_at"`
	DroppedAt    *time.Time `                                                      json:"dropped_at,omitempty"`
	CompletedAt  *time.Time `                                                      json:"completed_at,omitempty"`
	VersionedModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID;references:CourseID"   json:"course,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
