package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/school"
	"github.com/penahikmah/sekolah/storage/database"
)

type schoolRepository struct {
	db core.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

var schoolConstraints = constraintErrs{
	"students_user_id_fkey":            school.ErrUserNotFound,
	"teachers_user_id_fkey":            school.ErrUserNotFound,
	"classes_homeroom_teacher_id_fkey": school.ErrTeacherNotFound,
	"class_students_class_id_fkey":     school.ErrClassNotFound,
	"class_students_student_id_fkey":   school.ErrStudentNotFound,
}

var byFullName = core.DBOrdering{Field: "full_name", Ascending: true}

// Students

const studentSelect = `
	SELECT id, full_name, nisn, birth_place, to_char(birth_date, 'YYYY-MM-DD') AS birth_date,
		gender, address, parent_name, parent_phone, enrollment_year, status, user_id, created_at, updated_at
	FROM students`

type membershipRow struct {
	ClassID   string `db:"class_id"`
	StudentID string `db:"student_id"`
}

type studentClassRow struct {
	StudentID string `db:"student_id"`
	school.ClassRef
}

// withClasses attaches class refs to students, querying memberships for all of them at once.
func (repo *schoolRepository) withClasses(ctx context.Context, students []school.Student) ([]school.StudentDetail, error) {
	details := make([]school.StudentDetail, 0, len(students))
	if len(students) == 0 {
		return details, nil
	}
	ids := make(pq.StringArray, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	var rows []studentClassRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT cs.student_id, c.id, c.name
		FROM class_students cs
		JOIN classes c ON c.id = cs.class_id
		WHERE cs.student_id = ANY($1)
		ORDER BY c.name`,
		ids)
	if err != nil {
		return nil, trapErr(err, "selecting student classes", nil, nil)
	}
	classes := make(map[string][]school.ClassRef)
	for _, row := range rows {
		classes[row.StudentID] = append(classes[row.StudentID], row.ClassRef)
	}

	for _, s := range students {
		refs := classes[s.ID]
		if refs == nil {
			refs = make([]school.ClassRef, 0)
		}
		details = append(details, school.StudentDetail{Student: s, Classes: refs})
	}
	return details, nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context) ([]school.StudentDetail, error) {
	var students []school.Student
	if err := repo.db.SelectContext(ctx, &students, studentSelect+` ORDER BY `+byFullName.String()); err != nil {
		return nil, trapErr(err, "selecting students", nil, nil)
	}
	return repo.withClasses(ctx, students)
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id string) (school.StudentDetail, error) {
	var s school.Student
	if err := repo.db.GetContext(ctx, &s, studentSelect+` WHERE id = $1`, id); err != nil {
		return school.StudentDetail{}, trapErr(err, "selecting student", school.ErrStudentNotFound, nil)
	}
	details, err := repo.withClasses(ctx, []school.Student{s})
	if err != nil {
		return school.StudentDetail{}, err
	}
	return details[0], nil
}

func (repo *schoolRepository) CreateStudents(ctx context.Context, students []school.Student, classID string) error {
	if len(students) == 0 {
		return nil
	}
	return database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO students (id, full_name, nisn, birth_place, birth_date, gender, address,
				parent_name, parent_phone, enrollment_year, status, user_id, created_at, updated_at)
			VALUES (:id, :full_name, :nisn, :birth_place, :birth_date, :gender, :address,
				:parent_name, :parent_phone, :enrollment_year, :status, :user_id, :created_at, :updated_at)`,
			students)
		if err != nil {
			return trapErr(err, "inserting students", nil, schoolConstraints)
		}
		if classID == "" {
			return nil
		}
		members := make([]membershipRow, 0, len(students))
		for _, s := range students {
			members = append(members, membershipRow{ClassID: classID, StudentID: s.ID})
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO class_students (class_id, student_id) VALUES (:class_id, :student_id)`, members)
		return trapErr(err, "enrolling students", nil, schoolConstraints)
	})
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, s school.Student) error {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE students SET full_name = :full_name, nisn = :nisn, birth_place = :birth_place,
			birth_date = :birth_date, gender = :gender, address = :address, parent_name = :parent_name,
			parent_phone = :parent_phone, enrollment_year = :enrollment_year, status = :status,
			user_id = :user_id, updated_at = :updated_at
		WHERE id = :id`,
		s)
	if err != nil {
		return trapErr(err, "updating student", nil, schoolConstraints)
	}
	return checkAffected(res, school.ErrStudentNotFound)
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	return trapErr(err, "deleting student", nil, nil)
}

// Teachers

const teacherSelect = `
	SELECT id, full_name, nip, subject, education, phone, position, status, user_id, created_at, updated_at
	FROM teachers`

func (repo *schoolRepository) QueryTeachers(ctx context.Context) ([]school.Teacher, error) {
	teachers := make([]school.Teacher, 0)
	err := repo.db.SelectContext(ctx, &teachers, teacherSelect+` ORDER BY `+byFullName.String())
	return teachers, trapErr(err, "selecting teachers", nil, nil)
}

func (repo *schoolRepository) GetTeacher(ctx context.Context, id string) (school.Teacher, error) {
	var t school.Teacher
	err := repo.db.GetContext(ctx, &t, teacherSelect+` WHERE id = $1`, id)
	return t, trapErr(err, "selecting teacher", school.ErrTeacherNotFound, nil)
}

func (repo *schoolRepository) CreateTeachers(ctx context.Context, teachers []school.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO teachers (id, full_name, nip, subject, education, phone, position, status,
			user_id, created_at, updated_at)
		VALUES (:id, :full_name, :nip, :subject, :education, :phone, :position, :status,
			:user_id, :created_at, :updated_at)`,
		teachers)
	return trapErr(err, "inserting teachers", nil, schoolConstraints)
}

func (repo *schoolRepository) UpdateTeacher(ctx context.Context, t school.Teacher) error {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE teachers SET full_name = :full_name, nip = :nip, subject = :subject, education = :education,
			phone = :phone, position = :position, status = :status, user_id = :user_id, updated_at = :updated_at
		WHERE id = :id`,
		t)
	if err != nil {
		return trapErr(err, "updating teacher", nil, schoolConstraints)
	}
	return checkAffected(res, school.ErrTeacherNotFound)
}

func (repo *schoolRepository) DeleteTeacher(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	return trapErr(err, "deleting teacher", nil, nil)
}

// Classes

type classRow struct {
	school.Class
	TeacherName null.String `db:"homeroom_teacher_name"`
}

type classStudentRow struct {
	ClassID string `db:"class_id"`
	school.StudentRef
}

const classSelect = `
	SELECT c.id, c.name, c.academic_year, c.homeroom_teacher_id, c.created_at, c.updated_at,
		t.full_name AS homeroom_teacher_name
	FROM classes c
	LEFT JOIN teachers t ON t.id = c.homeroom_teacher_id`

func (repo *schoolRepository) withStudents(ctx context.Context, rows []classRow) ([]school.ClassDetail, error) {
	details := make([]school.ClassDetail, 0, len(rows))
	if len(rows) == 0 {
		return details, nil
	}
	ids := make(pq.StringArray, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var members []classStudentRow
	err := repo.db.SelectContext(ctx, &members, `
		SELECT cs.class_id, s.id, s.full_name, s.nisn
		FROM class_students cs
		JOIN students s ON s.id = cs.student_id
		WHERE cs.class_id = ANY($1)
		ORDER BY s.full_name`,
		ids)
	if err != nil {
		return nil, trapErr(err, "selecting class students", nil, nil)
	}
	students := make(map[string][]school.StudentRef)
	for _, m := range members {
		students[m.ClassID] = append(students[m.ClassID], m.StudentRef)
	}

	for _, row := range rows {
		cd := school.ClassDetail{Class: row.Class, Students: students[row.ID]}
		if cd.Students == nil {
			cd.Students = make([]school.StudentRef, 0)
		}
		if row.HomeroomTeacherID.Valid && row.TeacherName.Valid {
			cd.HomeroomTeacher = &school.TeacherRef{ID: row.HomeroomTeacherID.String, FullName: row.TeacherName.String}
		}
		details = append(details, cd)
	}
	return details, nil
}

func (repo *schoolRepository) QueryClasses(ctx context.Context) ([]school.ClassDetail, error) {
	var rows []classRow
	ord := core.DBOrdering{Field: "c.name", Ascending: true}
	if err := repo.db.SelectContext(ctx, &rows, classSelect+` ORDER BY `+ord.String()); err != nil {
		return nil, trapErr(err, "selecting classes", nil, nil)
	}
	return repo.withStudents(ctx, rows)
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string) (school.ClassDetail, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, classSelect+` WHERE c.id = $1`, id); err != nil {
		return school.ClassDetail{}, trapErr(err, "selecting class", school.ErrClassNotFound, nil)
	}
	details, err := repo.withStudents(ctx, []classRow{row})
	if err != nil {
		return school.ClassDetail{}, err
	}
	return details[0], nil
}

func (repo *schoolRepository) CreateClass(ctx context.Context, c school.Class) error {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO classes (id, name, academic_year, homeroom_teacher_id, created_at, updated_at)
		VALUES (:id, :name, :academic_year, :homeroom_teacher_id, :created_at, :updated_at)`,
		c)
	return trapErr(err, "inserting class", nil, schoolConstraints)
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, c school.Class) error {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE classes SET name = :name, academic_year = :academic_year,
			homeroom_teacher_id = :homeroom_teacher_id, updated_at = :updated_at
		WHERE id = :id`,
		c)
	if err != nil {
		return trapErr(err, "updating class", nil, schoolConstraints)
	}
	return checkAffected(res, school.ErrClassNotFound)
}

func (repo *schoolRepository) DeleteClass(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	return trapErr(err, "deleting class", nil, nil)
}

func (repo *schoolRepository) AddStudentToClass(ctx context.Context, classID, studentID string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO class_students (class_id, student_id) VALUES ($1, $2)
		ON CONFLICT (class_id, student_id) DO NOTHING`,
		classID, studentID)
	return trapErr(err, "inserting class student", nil, schoolConstraints)
}

func (repo *schoolRepository) RemoveStudentFromClass(ctx context.Context, classID, studentID string) error {
	_, err := repo.db.ExecContext(ctx,
		`DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	return trapErr(err, "deleting class student", nil, nil)
}
