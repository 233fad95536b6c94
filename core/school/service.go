package school

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
)

var (
	ErrNoImportRows = core.NewValidationError(errors.New("No data to import"))
	ErrNoValidRows  = core.NewValidationError(errors.New("No valid rows to import: nama_lengkap is required"))
)

type (
	Repository interface {
		// QueryStudents returns every student with its classes, ordered by name.
		QueryStudents(ctx context.Context) ([]StudentDetail, error)
		GetStudent(ctx context.Context, id string) (StudentDetail, error)
		// CreateStudents stores the students in one transaction.
		// A non-empty classID also enrolls every one of them in that class.
		CreateStudents(ctx context.Context, students []Student, classID string) error
		UpdateStudent(ctx context.Context, s Student) error
		DeleteStudent(ctx context.Context, id string) error

		QueryTeachers(ctx context.Context) ([]Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		CreateTeachers(ctx context.Context, teachers []Teacher) error
		UpdateTeacher(ctx context.Context, t Teacher) error
		DeleteTeacher(ctx context.Context, id string) error

		// QueryClasses returns every class with homeroom teacher and students, ordered by name.
		QueryClasses(ctx context.Context) ([]ClassDetail, error)
		GetClass(ctx context.Context, id string) (ClassDetail, error)
		CreateClass(ctx context.Context, c Class) error
		UpdateClass(ctx context.Context, c Class) error
		DeleteClass(ctx context.Context, id string) error

		// AddStudentToClass is idempotent.
		AddStudentToClass(ctx context.Context, classID, studentID string) error
		RemoveStudentFromClass(ctx context.Context, classID, studentID string) error
	}

	Service struct {
		repo          Repository
		validate      *validator.Validate
		importMaxRows int
	}
)

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:          repo,
		validate:      validate,
		importMaxRows: conf.ImportMaxRows,
	}
}

func now() time.Time { return time.Now().UTC() }

// Students

func (svc *Service) ListStudents(ctx context.Context, caller rbac.Caller) ([]StudentDetail, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryStudents(ctx)
	return students, errors.Wrap(err, "querying students")
}

func (svc *Service) GetStudent(ctx context.Context, caller rbac.Caller, ref RecordRef) (StudentDetail, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return StudentDetail{}, err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return StudentDetail{}, err
	}
	return svc.repo.GetStudent(ctx, ref.ID)
}

func (svc *Service) CreateStudent(ctx context.Context, caller rbac.Caller, ns NewStudent) (Student, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Student{}, err
	}
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}
	s := ns.student(uuid.New().String(), now())
	if err := svc.repo.CreateStudents(ctx, []Student{s}, ns.ClassID); err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return s, nil
}

func (svc *Service) UpdateStudent(ctx context.Context, caller rbac.Caller, us UpdateStudent) (Student, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Student{}, err
	}
	if err := svc.validate.Struct(us); err != nil {
		return Student{}, err
	}
	sd, err := svc.repo.GetStudent(ctx, us.ID)
	if err != nil {
		return Student{}, errors.Wrap(err, "getting student")
	}
	s := sd.Student
	us.apply(&s, now())
	if err = svc.repo.UpdateStudent(ctx, s); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	return s, nil
}

func (svc *Service) DeleteStudent(ctx context.Context, caller rbac.Caller, ref RecordRef) error {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteStudent(ctx, ref.ID), "deleting student")
}

func (svc *Service) LinkStudentUser(ctx context.Context, caller rbac.Caller, link StudentUserLink) (Student, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Student{}, err
	}
	if err := svc.validate.Struct(link); err != nil {
		return Student{}, err
	}
	sd, err := svc.repo.GetStudent(ctx, link.StudentID)
	if err != nil {
		return Student{}, errors.Wrap(err, "getting student")
	}
	s := sd.Student
	s.UserID = nullStr(link.UserID)
	s.UpdatedAt = now()
	if err = svc.repo.UpdateStudent(ctx, s); err != nil {
		return Student{}, errors.Wrap(err, "linking student user")
	}
	return s, nil
}

// Teachers

func (svc *Service) ListTeachers(ctx context.Context, caller rbac.Caller) ([]Teacher, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return nil, err
	}
	teachers, err := svc.repo.QueryTeachers(ctx)
	return teachers, errors.Wrap(err, "querying teachers")
}

func (svc *Service) GetTeacher(ctx context.Context, caller rbac.Caller, ref RecordRef) (Teacher, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return Teacher{}, err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return Teacher{}, err
	}
	return svc.repo.GetTeacher(ctx, ref.ID)
}

func (svc *Service) CreateTeacher(ctx context.Context, caller rbac.Caller, nt NewTeacher) (Teacher, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Teacher{}, err
	}
	if err := svc.validate.Struct(nt); err != nil {
		return Teacher{}, err
	}
	t := nt.teacher(uuid.New().String(), now())
	if err := svc.repo.CreateTeachers(ctx, []Teacher{t}); err != nil {
		return Teacher{}, errors.Wrap(err, "creating teacher")
	}
	return t, nil
}

func (svc *Service) UpdateTeacher(ctx context.Context, caller rbac.Caller, ut UpdateTeacher) (Teacher, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Teacher{}, err
	}
	if err := svc.validate.Struct(ut); err != nil {
		return Teacher{}, err
	}
	t, err := svc.repo.GetTeacher(ctx, ut.ID)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "getting teacher")
	}
	ut.apply(&t, now())
	if err = svc.repo.UpdateTeacher(ctx, t); err != nil {
		return Teacher{}, errors.Wrap(err, "updating teacher")
	}
	return t, nil
}

func (svc *Service) DeleteTeacher(ctx context.Context, caller rbac.Caller, ref RecordRef) error {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteTeacher(ctx, ref.ID), "deleting teacher")
}

func (svc *Service) LinkTeacherUser(ctx context.Context, caller rbac.Caller, link TeacherUserLink) (Teacher, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Teacher{}, err
	}
	if err := svc.validate.Struct(link); err != nil {
		return Teacher{}, err
	}
	t, err := svc.repo.GetTeacher(ctx, link.TeacherID)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "getting teacher")
	}
	t.UserID = nullStr(link.UserID)
	t.UpdatedAt = now()
	if err = svc.repo.UpdateTeacher(ctx, t); err != nil {
		return Teacher{}, errors.Wrap(err, "linking teacher user")
	}
	return t, nil
}

// Classes

func (svc *Service) ListClasses(ctx context.Context, caller rbac.Caller) ([]ClassDetail, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return nil, err
	}
	classes, err := svc.repo.QueryClasses(ctx)
	return classes, errors.Wrap(err, "querying classes")
}

func (svc *Service) GetClass(ctx context.Context, caller rbac.Caller, ref RecordRef) (ClassDetail, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return ClassDetail{}, err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return ClassDetail{}, err
	}
	return svc.repo.GetClass(ctx, ref.ID)
}

func (svc *Service) CreateClass(ctx context.Context, caller rbac.Caller, nc NewClass) (Class, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Class{}, err
	}
	if err := svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}
	c := nc.class(uuid.New().String(), now())
	if err := svc.repo.CreateClass(ctx, c); err != nil {
		return Class{}, errors.Wrap(err, "creating class")
	}
	return c, nil
}

func (svc *Service) UpdateClass(ctx context.Context, caller rbac.Caller, uc UpdateClass) (Class, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return Class{}, err
	}
	if err := svc.validate.Struct(uc); err != nil {
		return Class{}, err
	}
	cd, err := svc.repo.GetClass(ctx, uc.ID)
	if err != nil {
		return Class{}, errors.Wrap(err, "getting class")
	}
	c := cd.Class
	uc.apply(&c, now())
	if err = svc.repo.UpdateClass(ctx, c); err != nil {
		return Class{}, errors.Wrap(err, "updating class")
	}
	return c, nil
}

func (svc *Service) DeleteClass(ctx context.Context, caller rbac.Caller, ref RecordRef) error {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteClass(ctx, ref.ID), "deleting class")
}

func (svc *Service) AddStudentToClass(ctx context.Context, caller rbac.Caller, m ClassMembership) error {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(m); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.AddStudentToClass(ctx, m.ClassID, m.StudentID), "adding student to class")
}

func (svc *Service) RemoveStudentFromClass(ctx context.Context, caller rbac.Caller, m ClassMembership) error {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(m); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.RemoveStudentFromClass(ctx, m.ClassID, m.StudentID), "removing student from class")
}

// Import / Export

func (svc *Service) ExportStudents(ctx context.Context, caller rbac.Caller) ([]StudentRow, error) {
	students, err := svc.ListStudents(ctx, caller)
	if err != nil {
		return nil, err
	}
	rows := make([]StudentRow, 0, len(students))
	for _, s := range students {
		rows = append(rows, exportStudent(s))
	}
	return rows, nil
}

func (svc *Service) ExportTeachers(ctx context.Context, caller rbac.Caller) ([]TeacherRow, error) {
	teachers, err := svc.ListTeachers(ctx, caller)
	if err != nil {
		return nil, err
	}
	rows := make([]TeacherRow, 0, len(teachers))
	for _, t := range teachers {
		rows = append(rows, exportTeacher(t))
	}
	return rows, nil
}

func (svc *Service) checkImportSize(n int) error {
	if n == 0 {
		return ErrNoImportRows
	}
	if n > svc.importMaxRows {
		return core.NewValidationError(errors.Errorf("Maximum %d rows per import", svc.importMaxRows))
	}
	return nil
}

// rowError reports the first invalid field of the i-th (0-based) imported row.
func (svc *Service) rowError(i int, err error) error {
	if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
		fld := fmt.Sprintf("rows[%d].%s", i, vErrs[0].Field())
		return core.NewValidationError(
			errors.Errorf("row %d: invalid %s", i+1, vErrs[0].Field()),
			core.FieldError{Field: fld, Error: "invalid value"},
		)
	}
	return err
}

// ImportStudents stores every named row in one transaction and returns how many were imported.
func (svc *Service) ImportStudents(ctx context.Context, caller rbac.Caller, in StudentImport) (int, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return 0, err
	}
	if err := svc.checkImportSize(len(in.Rows)); err != nil {
		return 0, err
	}

	ts := now()
	students := make([]Student, 0, len(in.Rows))
	for i, row := range in.Rows {
		ns, ok := row.newStudent()
		if !ok {
			continue
		}
		if err := svc.validate.Struct(ns); err != nil {
			return 0, svc.rowError(i, err)
		}
		students = append(students, ns.student(uuid.New().String(), ts))
	}
	if len(students) == 0 {
		return 0, ErrNoValidRows
	}

	if err := svc.repo.CreateStudents(ctx, students, ""); err != nil {
		return 0, errors.Wrap(err, "importing students")
	}
	return len(students), nil
}

func (svc *Service) ImportTeachers(ctx context.Context, caller rbac.Caller, in TeacherImport) (int, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return 0, err
	}
	if err := svc.checkImportSize(len(in.Rows)); err != nil {
		return 0, err
	}

	ts := now()
	teachers := make([]Teacher, 0, len(in.Rows))
	for i, row := range in.Rows {
		nt, ok := row.newTeacher()
		if !ok {
			continue
		}
		if err := svc.validate.Struct(nt); err != nil {
			return 0, svc.rowError(i, err)
		}
		teachers = append(teachers, nt.teacher(uuid.New().String(), ts))
	}
	if len(teachers) == 0 {
		return 0, ErrNoValidRows
	}

	if err := svc.repo.CreateTeachers(ctx, teachers); err != nil {
		return 0, errors.Wrap(err, "importing teachers")
	}
	return len(teachers), nil
}
