package inmemdb

import (
	"context"
	"sort"

	"github.com/penahikmah/sekolah/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// the helpers below must be called with the lock held

func (repo *schoolRepository) studentDetail(s school.Student) school.StudentDetail {
	sd := school.StudentDetail{Student: s, Classes: make([]school.ClassRef, 0)}
	for classID, members := range repo.db.classStudents {
		if _, ok := members[s.ID]; ok {
			sd.Classes = append(sd.Classes, school.ClassRef{ID: classID, Name: repo.db.classes[classID].Name})
		}
	}
	sort.Slice(sd.Classes, func(i, j int) bool { return sd.Classes[i].Name < sd.Classes[j].Name })
	return sd
}

func (repo *schoolRepository) classDetail(c school.Class) school.ClassDetail {
	cd := school.ClassDetail{Class: c, Students: make([]school.StudentRef, 0)}
	if c.HomeroomTeacherID.Valid {
		if t, ok := repo.db.teachers[c.HomeroomTeacherID.String]; ok {
			cd.HomeroomTeacher = &school.TeacherRef{ID: t.ID, FullName: t.FullName}
		}
	}
	for studentID := range repo.db.classStudents[c.ID] {
		s := repo.db.students[studentID]
		cd.Students = append(cd.Students, school.StudentRef{ID: s.ID, FullName: s.FullName, NISN: s.NISN})
	}
	sort.Slice(cd.Students, func(i, j int) bool { return cd.Students[i].FullName < cd.Students[j].FullName })
	return cd
}

func (repo *schoolRepository) checkUser(userID string) error {
	if userID == "" {
		return nil
	}
	if _, ok := repo.db.users[userID]; !ok {
		return school.ErrUserNotFound
	}
	return nil
}

// Students

func (repo *schoolRepository) QueryStudents(_ context.Context) ([]school.StudentDetail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]school.StudentDetail, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, repo.studentDetail(s))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, id string) (school.StudentDetail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.db.students[id]
	if !ok {
		return school.StudentDetail{}, school.ErrStudentNotFound
	}
	return repo.studentDetail(s), nil
}

func (repo *schoolRepository) CreateStudents(_ context.Context, students []school.Student, classID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if classID != "" {
		if _, ok := repo.db.classes[classID]; !ok {
			return school.ErrClassNotFound
		}
	}
	for _, s := range students {
		if err := repo.checkUser(s.UserID.String); err != nil {
			return err
		}
	}
	for _, s := range students {
		repo.db.students[s.ID] = s
		if classID != "" {
			repo.addMember(classID, s.ID)
		}
	}
	return nil
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, s school.Student) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[s.ID]; !ok {
		return school.ErrStudentNotFound
	}
	if err := repo.checkUser(s.UserID.String); err != nil {
		return err
	}
	repo.db.students[s.ID] = s
	return nil
}

func (repo *schoolRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.students, id)
	for _, members := range repo.db.classStudents {
		delete(members, id)
	}
	return nil
}

// Teachers

func (repo *schoolRepository) QueryTeachers(_ context.Context) ([]school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		teachers = append(teachers, t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].FullName < teachers[j].FullName })
	return teachers, nil
}

func (repo *schoolRepository) GetTeacher(_ context.Context, id string) (school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, ok := repo.db.teachers[id]
	if !ok {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	return t, nil
}

func (repo *schoolRepository) CreateTeachers(_ context.Context, teachers []school.Teacher) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, t := range teachers {
		if err := repo.checkUser(t.UserID.String); err != nil {
			return err
		}
	}
	for _, t := range teachers {
		repo.db.teachers[t.ID] = t
	}
	return nil
}

func (repo *schoolRepository) UpdateTeacher(_ context.Context, t school.Teacher) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[t.ID]; !ok {
		return school.ErrTeacherNotFound
	}
	if err := repo.checkUser(t.UserID.String); err != nil {
		return err
	}
	repo.db.teachers[t.ID] = t
	return nil
}

func (repo *schoolRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.teachers, id)
	for cid, c := range repo.db.classes {
		if c.HomeroomTeacherID.String == id {
			c.HomeroomTeacherID.Valid = false
			c.HomeroomTeacherID.String = ""
			repo.db.classes[cid] = c
		}
	}
	return nil
}

// Classes

func (repo *schoolRepository) QueryClasses(_ context.Context) ([]school.ClassDetail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.ClassDetail, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, repo.classDetail(c))
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string) (school.ClassDetail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.classes[id]
	if !ok {
		return school.ClassDetail{}, school.ErrClassNotFound
	}
	return repo.classDetail(c), nil
}

func (repo *schoolRepository) checkHomeroomTeacher(c school.Class) error {
	if !c.HomeroomTeacherID.Valid {
		return nil
	}
	if _, ok := repo.db.teachers[c.HomeroomTeacherID.String]; !ok {
		return school.ErrTeacherNotFound
	}
	return nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, c school.Class) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkHomeroomTeacher(c); err != nil {
		return err
	}
	repo.db.classes[c.ID] = c
	return nil
}

func (repo *schoolRepository) UpdateClass(_ context.Context, c school.Class) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[c.ID]; !ok {
		return school.ErrClassNotFound
	}
	if err := repo.checkHomeroomTeacher(c); err != nil {
		return err
	}
	repo.db.classes[c.ID] = c
	return nil
}

func (repo *schoolRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.classes, id)
	delete(repo.db.classStudents, id)
	return nil
}

func (repo *schoolRepository) addMember(classID, studentID string) {
	members, ok := repo.db.classStudents[classID]
	if !ok {
		members = make(map[string]struct{})
		repo.db.classStudents[classID] = members
	}
	members[studentID] = struct{}{}
}

func (repo *schoolRepository) AddStudentToClass(_ context.Context, classID, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return school.ErrClassNotFound
	}
	if _, ok := repo.db.students[studentID]; !ok {
		return school.ErrStudentNotFound
	}
	repo.addMember(classID, studentID)
	return nil
}

func (repo *schoolRepository) RemoveStudentFromClass(_ context.Context, classID, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.classStudents[classID], studentID)
	return nil
}
