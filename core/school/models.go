package school

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
)

const StatusActive = "aktif"

var (
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrTeacherNotFound = core.NewNotFoundError("teacher not found")
	ErrClassNotFound   = core.NewNotFoundError("class not found")
	ErrUserNotFound    = core.NewNotFoundError("user not found")
)

type (
	Student struct {
		ID             string      `json:"id" db:"id"`
		FullName       string      `json:"full_name" db:"full_name"`
		NISN           null.String `json:"nisn" db:"nisn"`
		BirthPlace     null.String `json:"birth_place" db:"birth_place"`
		BirthDate      null.String `json:"birth_date" db:"birth_date"` // YYYY-MM-DD
		Gender         null.String `json:"gender" db:"gender"`
		Address        null.String `json:"address" db:"address"`
		ParentName     null.String `json:"parent_name" db:"parent_name"`
		ParentPhone    null.String `json:"parent_phone" db:"parent_phone"`
		EnrollmentYear null.Int    `json:"enrollment_year" db:"enrollment_year"`
		Status         string      `json:"status" db:"status"`
		UserID         null.String `json:"user_id" db:"user_id"`
		CreatedAt      time.Time   `json:"created_at" db:"created_at"`
		UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	}

	// StudentDetail is a Student along with the classes it belongs to.
	StudentDetail struct {
		Student
		Classes []ClassRef `json:"classes"`
	}

	Teacher struct {
		ID        string      `json:"id" db:"id"`
		FullName  string      `json:"full_name" db:"full_name"`
		NIP       null.String `json:"nip" db:"nip"`
		Subject   null.String `json:"subject" db:"subject"`
		Education null.String `json:"education" db:"education"`
		Phone     null.String `json:"phone" db:"phone"`
		Position  null.String `json:"position" db:"position"`
		Status    string      `json:"status" db:"status"`
		UserID    null.String `json:"user_id" db:"user_id"`
		CreatedAt time.Time   `json:"created_at" db:"created_at"`
		UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
	}

	Class struct {
		ID                string      `json:"id" db:"id"`
		Name              string      `json:"name" db:"name"`
		AcademicYear      null.String `json:"academic_year" db:"academic_year"`
		HomeroomTeacherID null.String `json:"homeroom_teacher_id" db:"homeroom_teacher_id"`
		CreatedAt         time.Time   `json:"created_at" db:"created_at"`
		UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
	}

	// ClassDetail is a Class along with its homeroom teacher and students.
	ClassDetail struct {
		Class
		HomeroomTeacher *TeacherRef  `json:"homeroom_teacher"`
		Students        []StudentRef `json:"students"`
	}

	ClassRef struct {
		ID   string `json:"id" db:"id"`
		Name string `json:"name" db:"name"`
	}

	TeacherRef struct {
		ID       string `json:"id" db:"id"`
		FullName string `json:"full_name" db:"full_name"`
	}

	StudentRef struct {
		ID       string      `json:"id" db:"id"`
		FullName string      `json:"full_name" db:"full_name"`
		NISN     null.String `json:"nisn" db:"nisn"`
	}
)

// RecordRef identifies a student, teacher or class.
type RecordRef struct {
	ID string `json:"id" validate:"required,uuid"`
}

// NewStudent contains information needed to create a Student.
// ClassID optionally enrolls the student in a class.
type NewStudent struct {
	FullName       string `json:"full_name" validate:"required,notblank,max=200"`
	NISN           string `json:"nisn" validate:"max=20"`
	BirthPlace     string `json:"birth_place" validate:"max=100"`
	BirthDate      string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender         string `json:"gender" validate:"max=20"`
	Address        string `json:"address" validate:"max=500"`
	ParentName     string `json:"parent_name" validate:"max=200"`
	ParentPhone    string `json:"parent_phone" validate:"max=30"`
	EnrollmentYear *int   `json:"enrollment_year" validate:"omitempty,min=1900,max=2100"`
	Status         string `json:"status" validate:"max=30"`
	UserID         string `json:"user_id" validate:"omitempty,uuid"`
	ClassID        string `json:"class_id" validate:"omitempty,uuid"`
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched; empty strings clear optional fields.
type UpdateStudent struct {
	ID             string  `json:"id" validate:"required,uuid"`
	FullName       *string `json:"full_name" validate:"omitempty,notblank,max=200"`
	NISN           *string `json:"nisn" validate:"omitempty,max=20"`
	BirthPlace     *string `json:"birth_place" validate:"omitempty,max=100"`
	BirthDate      *string `json:"birth_date" validate:"omitempty,len=0|datetime=2006-01-02"`
	Gender         *string `json:"gender" validate:"omitempty,max=20"`
	Address        *string `json:"address" validate:"omitempty,max=500"`
	ParentName     *string `json:"parent_name" validate:"omitempty,max=200"`
	ParentPhone    *string `json:"parent_phone" validate:"omitempty,max=30"`
	EnrollmentYear *int    `json:"enrollment_year" validate:"omitempty,min=1900,max=2100"`
	Status         *string `json:"status" validate:"omitempty,max=30"`
}

type NewTeacher struct {
	FullName  string `json:"full_name" validate:"required,notblank,max=200"`
	NIP       string `json:"nip" validate:"max=30"`
	Subject   string `json:"subject" validate:"max=100"`
	Education string `json:"education" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=30"`
	Position  string `json:"position" validate:"max=100"`
	Status    string `json:"status" validate:"max=30"`
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
}

type UpdateTeacher struct {
	ID        string  `json:"id" validate:"required,uuid"`
	FullName  *string `json:"full_name" validate:"omitempty,notblank,max=200"`
	NIP       *string `json:"nip" validate:"omitempty,max=30"`
	Subject   *string `json:"subject" validate:"omitempty,max=100"`
	Education *string `json:"education" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Position  *string `json:"position" validate:"omitempty,max=100"`
	Status    *string `json:"status" validate:"omitempty,max=30"`
}

type NewClass struct {
	Name              string `json:"name" validate:"required,notblank,max=100"`
	AcademicYear      string `json:"academic_year" validate:"max=20"`
	HomeroomTeacherID string `json:"homeroom_teacher_id" validate:"omitempty,uuid"`
}

// UpdateClass: an empty HomeroomTeacherID removes the homeroom teacher.
type UpdateClass struct {
	ID                string  `json:"id" validate:"required,uuid"`
	Name              *string `json:"name" validate:"omitempty,notblank,max=100"`
	AcademicYear      *string `json:"academic_year" validate:"omitempty,max=20"`
	HomeroomTeacherID *string `json:"homeroom_teacher_id" validate:"omitempty,len=0|uuid"`
}

type ClassMembership struct {
	ClassID   string `json:"class_id" validate:"required,uuid"`
	StudentID string `json:"student_id" validate:"required,uuid"`
}

// StudentUserLink binds a student record to a user account. An empty UserID unlinks it.
type StudentUserLink struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
}

type TeacherUserLink struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
}

func nullStr(s string) null.String {
	s = core.CleanString(s)
	return null.NewString(s, s != "")
}

func nullIntPtr(i *int) null.Int {
	if i == nil {
		return null.Int{}
	}
	return null.IntFrom(*i)
}

func statusOrDefault(s string) string {
	s = core.CleanString(s, true /* lower */)
	if s == "" {
		return StatusActive
	}
	return s
}

func (ns NewStudent) student(id string, now time.Time) Student {
	return Student{
		ID:             id,
		FullName:       core.CleanString(ns.FullName),
		NISN:           nullStr(ns.NISN),
		BirthPlace:     nullStr(ns.BirthPlace),
		BirthDate:      nullStr(ns.BirthDate),
		Gender:         nullStr(ns.Gender),
		Address:        nullStr(ns.Address),
		ParentName:     nullStr(ns.ParentName),
		ParentPhone:    nullStr(ns.ParentPhone),
		EnrollmentYear: nullIntPtr(ns.EnrollmentYear),
		Status:         statusOrDefault(ns.Status),
		UserID:         nullStr(ns.UserID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (us UpdateStudent) apply(s *Student, now time.Time) {
	if us.FullName != nil {
		s.FullName = core.CleanString(*us.FullName)
	}
	if us.NISN != nil {
		s.NISN = nullStr(*us.NISN)
	}
	if us.BirthPlace != nil {
		s.BirthPlace = nullStr(*us.BirthPlace)
	}
	if us.BirthDate != nil {
		s.BirthDate = nullStr(*us.BirthDate)
	}
	if us.Gender != nil {
		s.Gender = nullStr(*us.Gender)
	}
	if us.Address != nil {
		s.Address = nullStr(*us.Address)
	}
	if us.ParentName != nil {
		s.ParentName = nullStr(*us.ParentName)
	}
	if us.ParentPhone != nil {
		s.ParentPhone = nullStr(*us.ParentPhone)
	}
	if us.EnrollmentYear != nil {
		s.EnrollmentYear = nullIntPtr(us.EnrollmentYear)
	}
	if us.Status != nil {
		s.Status = statusOrDefault(*us.Status)
	}
	s.UpdatedAt = now
}

func (nt NewTeacher) teacher(id string, now time.Time) Teacher {
	return Teacher{
		ID:        id,
		FullName:  core.CleanString(nt.FullName),
		NIP:       nullStr(nt.NIP),
		Subject:   nullStr(nt.Subject),
		Education: nullStr(nt.Education),
		Phone:     nullStr(nt.Phone),
		Position:  nullStr(nt.Position),
		Status:    statusOrDefault(nt.Status),
		UserID:    nullStr(nt.UserID),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (ut UpdateTeacher) apply(t *Teacher, now time.Time) {
	if ut.FullName != nil {
		t.FullName = core.CleanString(*ut.FullName)
	}
	if ut.NIP != nil {
		t.NIP = nullStr(*ut.NIP)
	}
	if ut.Subject != nil {
		t.Subject = nullStr(*ut.Subject)
	}
	if ut.Education != nil {
		t.Education = nullStr(*ut.Education)
	}
	if ut.Phone != nil {
		t.Phone = nullStr(*ut.Phone)
	}
	if ut.Position != nil {
		t.Position = nullStr(*ut.Position)
	}
	if ut.Status != nil {
		t.Status = statusOrDefault(*ut.Status)
	}
	t.UpdatedAt = now
}

func (nc NewClass) class(id string, now time.Time) Class {
	return Class{
		ID:                id,
		Name:              core.CleanString(nc.Name),
		AcademicYear:      nullStr(nc.AcademicYear),
		HomeroomTeacherID: nullStr(nc.HomeroomTeacherID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (uc UpdateClass) apply(c *Class, now time.Time) {
	if uc.Name != nil {
		c.Name = core.CleanString(*uc.Name)
	}
	if uc.AcademicYear != nil {
		c.AcademicYear = nullStr(*uc.AcademicYear)
	}
	if uc.HomeroomTeacherID != nil {
		c.HomeroomTeacherID = nullStr(*uc.HomeroomTeacherID)
	}
	c.UpdatedAt = now
}
