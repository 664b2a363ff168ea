package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/internal/repository"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// 内存存储：五个 mock Repository 共用，便于模拟关联预加载
// 唯一约束与数据库保持一致，冲突时返回 gorm.ErrDuplicatedKey
// ═══════════════════════════════════════════════════════════

type memStore struct {
	mu          sync.RWMutex
	txMu        sync.Mutex // 事务串行化，模拟行锁
	seq         int
	users       map[string]*model.User
	students    map[string]*model.Student
	instructors map[string]*model.Instructor
	courses     map[string]*model.Course
	enrollments map[string]*model.Enrollment
	deleted     map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*model.User),
		students:    make(map[string]*model.Student),
		instructors: make(map[string]*model.Instructor),
		courses:     make(map[string]*model.Course),
		enrollments: make(map[string]*model.Enrollment),
		deleted:     make(map[string]bool),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// newMockRepository 组装基于内存存储的 Repository
// 事务在 txMu 下串行执行，不支持回滚与嵌套调用
func newMockRepository() (*repository.Repository, *memStore) {
	store := newMemStore()
	repo := &repository.Repository{
		User:       &mockUserRepo{store},
		Student:    &mockStudentRepo{store},
		Instructor: &mockInstructorRepo{store},
		Course:     &mockCourseRepo{store},
		Enrollment: &mockEnrollmentRepo{store},
	}
	repo.SetTxFunc(func(_ context.Context, fn func(txRepo *repository.Repository) error) error {
		store.txMu.Lock()
		defer store.txMu.Unlock()
		return fn(repo)
	})
	return repo, store
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ── 带关联的拷贝（调用方持锁） ──

func (s *memStore) copyUser(id string) *model.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memStore) copyStudent(id string) *model.Student {
	st, ok := s.students[id]
	if !ok || s.deleted[id] {
		return nil
	}
	cp := *st
	cp.User = s.copyUser(st.UserID)
	return &cp
}

func (s *memStore) copyInstructor(id string) *model.Instructor {
	in, ok := s.instructors[id]
	if !ok || s.deleted[id] {
		return nil
	}
	cp := *in
	cp.User = s.copyUser(in.UserID)
	return &cp
}

func (s *memStore) copyCourse(id string) *model.Course {
	c, ok := s.courses[id]
	if !ok || s.deleted[id] {
		return nil
	}
	cp := *c
	cp.Instructor = nil
	if c.InstructorID != nil {
		if in, ok := s.instructors[*c.InstructorID]; ok {
			inCp := *in
			inCp.User = nil
			cp.Instructor = &inCp
		}
	}
	return &cp
}

func (s *memStore) copyEnrollment(id string) *model.Enrollment {
	e, ok := s.enrollments[id]
	if !ok || s.deleted[id] {
		return nil
	}
	cp := *e
	cp.Student = nil
	if st, ok := s.students[e.StudentID]; ok {
		stCp := *st
		stCp.User = nil
		cp.Student = &stCp
	}
	cp.Course = nil
	if c, ok := s.courses[e.CourseID]; ok {
		cCp := *c
		cp.Course = &cCp
		if c.InstructorID != nil {
			if in, ok := s.instructors[*c.InstructorID]; ok {
				inCp := *in
				cp.Course.Instructor = &inCp
			}
		}
	}
	return &cp
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if u := m.s.copyUser(id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, u := range m.s.users {
		if u.Email == email {
			return m.s.copyUser(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var result []model.User
	for id, u := range m.s.users {
		if filters != nil {
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.IsActive != nil && u.IsActive != *filters.IsActive {
				continue
			}
			if filters.Keyword != "" && !containsFold(u.Email+u.FirstName+u.LastName, filters.Keyword) {
				continue
			}
		}
		result = append(result, *m.s.copyUser(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ s *memStore }

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, st := range m.s.students {
		if m.s.deleted[id] {
			continue
		}
		if st.UserID == student.UserID || st.StudentNumber == student.StudentNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if student.StudentID == "" {
		student.StudentID = m.s.nextID("stu")
	}
	student.CreatedAt = time.Now().UTC()
	cp := *student
	cp.User = nil
	m.s.students[student.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if st := m.s.copyStudent(id); st != nil {
		return st, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByUserID(_ context.Context, userID string) (*model.Student, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, st := range m.s.students {
		if st.UserID == userID && !m.s.deleted[id] {
			return m.s.copyStudent(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByNumber(_ context.Context, number string) (*model.Student, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, st := range m.s.students {
		if st.StudentNumber == number && !m.s.deleted[id] {
			return m.s.copyStudent(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *student
	cp.User = nil
	m.s.students[student.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.students[id]; ok {
		st.IsActive = false
		m.s.deleted[id] = true
	}
	return nil
}

func (m *mockStudentRepo) List(_ context.Context, filters *repository.StudentListFilters, offset, limit int) ([]model.Student, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var result []model.Student
	for id, st := range m.s.students {
		if m.s.deleted[id] {
			continue
		}
		if filters != nil {
			if filters.IsActive != nil && st.IsActive != *filters.IsActive {
				continue
			}
			if filters.Keyword != "" && !containsFold(st.StudentNumber+st.FullName, filters.Keyword) {
				continue
			}
		}
		result = append(result, *m.s.copyStudent(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentNumber < result[j].StudentNumber })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockStudentRepo) SetActiveByUser(_ context.Context, userID string, active bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, st := range m.s.students {
		if st.UserID == userID {
			st.IsActive = active
		}
	}
	return nil
}

// ── Mock InstructorRepository ──

type mockInstructorRepo struct{ s *memStore }

func (m *mockInstructorRepo) Create(_ context.Context, instructor *model.Instructor) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, in := range m.s.instructors {
		if m.s.deleted[id] {
			continue
		}
		if in.UserID == instructor.UserID || in.EmployeeNumber == instructor.EmployeeNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if instructor.InstructorID == "" {
		instructor.InstructorID = m.s.nextID("ins")
	}
	instructor.CreatedAt = time.Now().UTC()
	cp := *instructor
	cp.User = nil
	m.s.instructors[instructor.InstructorID] = &cp
	return nil
}

func (m *mockInstructorRepo) GetByID(_ context.Context, id string) (*model.Instructor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if in := m.s.copyInstructor(id); in != nil {
		return in, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstructorRepo) GetByUserID(_ context.Context, userID string) (*model.Instructor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, in := range m.s.instructors {
		if in.UserID == userID && !m.s.deleted[id] {
			return m.s.copyInstructor(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstructorRepo) GetByNumber(_ context.Context, number string) (*model.Instructor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, in := range m.s.instructors {
		if in.EmployeeNumber == number && !m.s.deleted[id] {
			return m.s.copyInstructor(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstructorRepo) Update(_ context.Context, instructor *model.Instructor) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *instructor
	cp.User = nil
	m.s.instructors[instructor.InstructorID] = &cp
	return nil
}

func (m *mockInstructorRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if in, ok := m.s.instructors[id]; ok {
		in.IsActive = false
		m.s.deleted[id] = true
	}
	return nil
}

func (m *mockInstructorRepo) List(_ context.Context, filters *repository.InstructorListFilters, offset, limit int) ([]model.Instructor, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var result []model.Instructor
	for id, in := range m.s.instructors {
		if m.s.deleted[id] {
			continue
		}
		if filters != nil {
			if filters.Department != "" && in.Department != filters.Department {
				continue
			}
			if filters.Keyword != "" && !containsFold(in.EmployeeNumber+in.FullName, filters.Keyword) {
				continue
			}
		}
		result = append(result, *m.s.copyInstructor(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeNumber < result[j].EmployeeNumber })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockInstructorRepo) SetActiveByUser(_ context.Context, userID string, active bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, in := range m.s.instructors {
		if in.UserID == userID {
			in.IsActive = active
		}
	}
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct{ s *memStore }

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, c := range m.s.courses {
		if !m.s.deleted[id] && c.Code == course.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if course.CourseID == "" {
		course.CourseID = m.s.nextID("crs")
	}
	course.CreatedAt = time.Now().UTC()
	cp := *course
	cp.Instructor = nil
	m.s.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if c := m.s.copyCourse(id); c != nil {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Course, error) {
	return m.GetByID(ctx, id)
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, c := range m.s.courses {
		if c.Code == code && !m.s.deleted[id] {
			return m.s.copyCourse(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *course
	cp.Instructor = nil
	m.s.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.deleted[id] = true
	return nil
}

func (m *mockCourseRepo) List(_ context.Context, filters *repository.CourseListFilters, offset, limit int) ([]model.Course, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var result []model.Course
	for id, c := range m.s.courses {
		if m.s.deleted[id] {
			continue
		}
		if filters != nil {
			if filters.Status != "" && c.Status != filters.Status {
				continue
			}
			if filters.InstructorID != "" && (c.InstructorID == nil || *c.InstructorID != filters.InstructorID) {
				continue
			}
			if filters.Keyword != "" && !containsFold(c.Code+c.Title, filters.Keyword) {
				continue
			}
		}
		result = append(result, *m.s.copyCourse(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockCourseRepo) CountByInstructor(_ context.Context, instructorID string) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var n int64
	for id, c := range m.s.courses {
		if !m.s.deleted[id] && c.InstructorID != nil && *c.InstructorID == instructorID {
			n++
		}
	}
	return n, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ s *memStore }

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	// 部分唯一索引：(student_id, course_id) WHERE status <> 'dropped'
	for id, e := range m.s.enrollments {
		if m.s.deleted[id] || e.Status == model.EnrollmentStatusDropped {
			continue
		}
		if e.StudentID == enrollment.StudentID && e.CourseID == enrollment.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	if enrollment.EnrollmentID == "" {
		enrollment.EnrollmentID = m.s.nextID("enr")
	}
	if enrollment.Version == 0 {
		enrollment.Version = 1
	}
	cp := *enrollment
	cp.Student, cp.Course = nil, nil
	m.s.enrollments[enrollment.EnrollmentID] = &cp
	return nil
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id string) (*model.Enrollment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if e := m.s.copyEnrollment(id); e != nil {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Enrollment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockEnrollmentRepo) FindOpen(_ context.Context, studentID, courseID string) (*model.Enrollment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for id, e := range m.s.enrollments {
		if m.s.deleted[id] {
			continue
		}
		if e.StudentID == studentID && e.CourseID == courseID && e.Status != model.EnrollmentStatusDropped {
			return m.s.copyEnrollment(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) countActive(match func(e *model.Enrollment) bool) int64 {
	var n int64
	for id, e := range m.s.enrollments {
		if !m.s.deleted[id] && e.Status == model.EnrollmentStatusActive && match(e) {
			n++
		}
	}
	return n
}

func (m *mockEnrollmentRepo) CountActiveByCourse(_ context.Context, courseID string) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.countActive(func(e *model.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (m *mockEnrollmentRepo) CountActiveByCourses(_ context.Context, courseIDs []string) (map[string]int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	result := make(map[string]int64, len(courseIDs))
	for _, cid := range courseIDs {
		if n := m.countActive(func(e *model.Enrollment) bool { return e.CourseID == cid }); n > 0 {
			result[cid] = n
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) CountActiveByStudent(_ context.Context, studentID string) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.countActive(func(e *model.Enrollment) bool { return e.StudentID == studentID }), nil
}

func (m *mockEnrollmentRepo) Update(_ context.Context, enrollment *model.Enrollment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.enrollments[enrollment.EnrollmentID]
	if !ok || stored.Version != enrollment.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *enrollment
	cp.Student, cp.Course = nil, nil
	cp.Version = enrollment.Version + 1
	m.s.enrollments[enrollment.EnrollmentID] = &cp
	enrollment.Version = cp.Version
	return nil
}

func (m *mockEnrollmentRepo) DropActiveByCourse(_ context.Context, courseID string, updatedBy string, at time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, e := range m.s.enrollments {
		if m.s.deleted[id] || e.CourseID != courseID || e.Status != model.EnrollmentStatusActive {
			continue
		}
		droppedAt := at
		e.Status = model.EnrollmentStatusDropped
		e.DroppedAt = &droppedAt
		e.UpdatedBy = &updatedBy
		e.Version++
		n++
	}
	return n, nil
}

func (m *mockEnrollmentRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.deleted[id] = true
	return nil
}

func (m *mockEnrollmentRepo) List(_ context.Context, filters *repository.EnrollmentListFilters, offset, limit int) ([]model.Enrollment, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var result []model.Enrollment
	for id, e := range m.s.enrollments {
		if m.s.deleted[id] {
			continue
		}
		if filters != nil {
			if filters.StudentID != "" && e.StudentID != filters.StudentID {
				continue
			}
			if filters.CourseID != "" && e.CourseID != filters.CourseID {
				continue
			}
			if filters.Status != "" && e.Status != filters.Status {
				continue
			}
			if filters.InstructorID != "" {
				c, ok := m.s.courses[e.CourseID]
				if !ok || c.InstructorID == nil || *c.InstructorID != filters.InstructorID {
					continue
				}
			}
		}
		result = append(result, *m.s.copyEnrollment(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EnrollmentID < result[j].EnrollmentID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockEnrollmentRepo) ListRoster(_ context.Context, courseID string) ([]model.Enrollment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var result []model.Enrollment
	for id, e := range m.s.enrollments {
		if m.s.deleted[id] || e.CourseID != courseID || e.Status == model.EnrollmentStatusDropped {
			continue
		}
		result = append(result, *m.s.copyEnrollment(id))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Student.StudentNumber < result[j].Student.StudentNumber
	})
	return result, nil
}
