package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core/school"
)

const (
	studentID = "5b0e8d2a-3c1f-4e7a-9b6d-2f4a8c1e7d90"
	teacherID = "7c2d9e1b-4a3f-4b8e-8c7d-3e5b9f2a6c11"
	classID   = "9e4f1a2b-6c5d-4e8f-a1b2-c3d4e5f60718"
)

var studentColumns = []string{
	"id", "full_name", "nisn", "birth_place", "birth_date", "gender", "address", "parent_name",
	"parent_phone", "enrollment_year", "status", "user_id", "created_at", "updated_at",
}

func TestGetStudent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("with classes", func(t *testing.T) {
		mock.ExpectQuery(`to_char\(birth_date, 'YYYY-MM-DD'\) AS birth_date.*FROM students WHERE id = \$1`).
			WithArgs(studentID).
			WillReturnRows(sqlmock.NewRows(studentColumns).
				AddRow(studentID, "Ani", "0012345678", nil, "2010-04-01", "P", nil, nil, nil, 2022, "aktif", nil, now, now))
		mock.ExpectQuery(`FROM class_students cs\s+JOIN classes c ON c.id = cs.class_id\s+WHERE cs.student_id = ANY\(\$1\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"student_id", "id", "name"}).AddRow(studentID, classID, "7A"))

		sd, err := repo.GetStudent(ctx, studentID)
		require.NoError(t, err)
		assert.Equal(t, "Ani", sd.FullName)
		assert.Equal(t, null.StringFrom("2010-04-01"), sd.BirthDate)
		assert.Equal(t, null.IntFrom(2022), sd.EnrollmentYear)
		assert.Equal(t, []school.ClassRef{{ID: classID, Name: "7A"}}, sd.Classes)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`FROM students WHERE id = \$1`).
			WithArgs(studentID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetStudent(ctx, studentID)
		assert.Equal(t, school.ErrStudentNotFound, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryStudentsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`FROM students ORDER BY full_name ASC`).
		WillReturnRows(sqlmock.NewRows(studentColumns))

	students, err := repo.QueryStudents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	students := []school.Student{
		{ID: studentID, FullName: "Ani", Status: school.StatusActive, CreatedAt: now, UpdatedAt: now},
	}

	t.Run("enrolls in class", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO students`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO class_students \(class_id, student_id\) VALUES \(\$1, \$2\)`).
			WithArgs(classID, studentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateStudents(ctx, students, classID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown class rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO students`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO class_students`).
			WillReturnError(&pq.Error{Code: fkViolation, Constraint: "class_students_class_id_fkey"})
		mock.ExpectRollback()

		err := repo.CreateStudents(ctx, students, classID)
		assert.Equal(t, school.ErrClassNotFound, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateTeacherNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)

	mock.ExpectExec(`UPDATE teachers SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTeacher(context.Background(), school.Teacher{ID: teacherID, FullName: "Pak Budi"})
	assert.Equal(t, school.ErrTeacherNotFound, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClass(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM classes c\s+LEFT JOIN teachers t ON t.id = c.homeroom_teacher_id WHERE c.id = \$1`).
		WithArgs(classID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "academic_year", "homeroom_teacher_id", "created_at", "updated_at", "homeroom_teacher_name",
		}).AddRow(classID, "7A", "2024/2025", teacherID, now, now, "Pak Budi"))
	mock.ExpectQuery(`FROM class_students cs\s+JOIN students s ON s.id = cs.student_id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "id", "full_name", "nisn"}).
			AddRow(classID, studentID, "Ani", nil))

	cd, err := repo.GetClass(context.Background(), classID)
	require.NoError(t, err)
	assert.Equal(t, &school.TeacherRef{ID: teacherID, FullName: "Pak Budi"}, cd.HomeroomTeacher)
	assert.Equal(t, []school.StudentRef{{ID: studentID, FullName: "Ani"}}, cd.Students)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStudentToClass(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)

	mock.ExpectExec(`INSERT INTO class_students .* ON CONFLICT \(class_id, student_id\) DO NOTHING`).
		WithArgs(classID, studentID).
		WillReturnError(&pq.Error{Code: fkViolation, Constraint: "class_students_student_id_fkey"})

	err := repo.AddStudentToClass(context.Background(), classID, studentID)
	assert.Equal(t, school.ErrStudentNotFound, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
