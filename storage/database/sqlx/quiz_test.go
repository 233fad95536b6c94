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

	"github.com/penahikmah/sekolah/core/quiz"
)

const (
	quizID   = "1f2e3d4c-5b6a-4978-8a9b-0c1d2e3f4a5b"
	resultID = "2a3b4c5d-6e7f-4a8b-9c0d-1e2f3a4b5c6d"
	mentorID = "3b4c5d6e-7f8a-4b9c-8d1e-2f3a4b5c6d7e"
)

var resultColumns = []string{
	"id", "quiz_id", "user_id", "score", "total_questions", "completed_at",
	"student_name", "student_email", "quiz_title", "subject_name",
	"feedback_id", "mentor_id", "comment", "adjusted_score", "feedback_created_at", "feedback_updated_at",
}

func TestCreateQuiz(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizRepository(db)
	subjectID := "4c5d6e7f-8a9b-4c0d-9e1f-2a3b4c5d6e7f"
	questions := []quiz.Question{{
		ID: "q1", QuizID: quizID, Prompt: "2 + 2", Position: 1,
		Options: []quiz.Option{
			{ID: "o1", QuestionID: "q1", Label: "4", IsCorrect: true},
			{ID: "o2", QuestionID: "q1", Label: "5"},
		},
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO subjects .* ON CONFLICT \(name\) DO UPDATE SET name = EXCLUDED.name\s+RETURNING id`).
		WithArgs(sqlmock.AnyArg(), "Matematika").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(subjectID))
	mock.ExpectExec(`INSERT INTO quizzes \(id, subject_id, title, created_at\)`).
		WithArgs(quizID, null.StringFrom(subjectID), "Penjumlahan", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO quiz_questions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO quiz_options`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.CreateQuiz(context.Background(), "Matematika", quizID, "Penjumlahan", questions)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuizQuestions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizRepository(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT true FROM quizzes WHERE id = \$1`).
			WithArgs(quizID).
			WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
		mock.ExpectQuery(`FROM quiz_questions WHERE quiz_id = \$1 ORDER BY position`).
			WithArgs(quizID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "prompt", "position"}).
				AddRow("q1", quizID, "2 + 2", 1))
		mock.ExpectQuery(`FROM quiz_options o`).
			WithArgs(quizID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "question_id", "label", "is_correct"}).
				AddRow("o1", "q1", "4", true).
				AddRow("o2", "q1", "5", false))

		questions, err := repo.GetQuizQuestions(ctx, quizID)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		require.Len(t, questions[0].Options, 2)
		assert.True(t, questions[0].Options[0].IsCorrect)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown quiz", func(t *testing.T) {
		mock.ExpectQuery(`SELECT true FROM quizzes WHERE id = \$1`).
			WithArgs(quizID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetQuizQuestions(ctx, quizID)
		assert.Equal(t, quiz.ErrQuizNotFound, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryUserResults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`LEFT JOIN quiz_feedback f ON f.quiz_result_id = r.id WHERE r.user_id = \$1 ORDER BY r.completed_at DESC`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(resultColumns).
			AddRow(resultID, quizID, userID, 3, 4, now, "Ani", "ani@example.com", "Penjumlahan", "Matematika",
				"fb1", mentorID, "Bagus", 80, now, now).
			AddRow("r2", quizID, userID, 1, 4, now, "Ani", "ani@example.com", "Penjumlahan", nil,
				nil, nil, nil, nil, nil, nil))

	results, err := repo.QueryUserResults(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NotNil(t, results[0].Feedback)
	assert.Equal(t, "Bagus", results[0].Feedback.Comment)
	assert.Equal(t, null.IntFrom(80), results[0].Feedback.AdjustedScore)
	assert.Equal(t, resultID, results[0].Feedback.QuizResultID)
	assert.Equal(t, "ani@example.com", results[0].StudentEmail)

	assert.Nil(t, results[1].Feedback)
	assert.False(t, results[1].SubjectName.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAllResults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`LEFT JOIN quiz_feedback f ON f.quiz_result_id = r.id ORDER BY r.completed_at DESC`).
		WithArgs().
		WillReturnRows(sqlmock.NewRows(resultColumns).
			AddRow(resultID, quizID, userID, 3, 4, now, "Ani", "ani@example.com", "Penjumlahan", nil,
				nil, nil, nil, nil, nil, nil).
			AddRow("r2", quizID, mentorID, 2, 4, now, "Budi", "budi@example.com", "Penjumlahan", nil,
				nil, nil, nil, nil, nil, nil))

	results, err := repo.QueryAllResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, userID, results[0].UserID)
	assert.Equal(t, mentorID, results[1].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFeedback(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	fb := quiz.Feedback{
		ID: "fb2", QuizResultID: resultID, MentorID: mentorID, Comment: "Perbaiki lagi",
		AdjustedScore: null.IntFrom(60), CreatedAt: now, UpdatedAt: now,
	}

	t.Run("keeps the existing row id", func(t *testing.T) {
		created := now.Add(-time.Hour)
		mock.ExpectQuery(`ON CONFLICT \(quiz_result_id\) DO UPDATE SET`).
			WithArgs(fb.ID, fb.QuizResultID, fb.MentorID, fb.Comment, fb.AdjustedScore, fb.CreatedAt, fb.UpdatedAt).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "quiz_result_id", "mentor_id", "comment", "adjusted_score", "created_at", "updated_at",
			}).AddRow("fb1", resultID, mentorID, "Perbaiki lagi", 60, created, now))

		stored, err := repo.UpsertFeedback(ctx, fb)
		require.NoError(t, err)
		assert.Equal(t, "fb1", stored.ID)
		assert.Equal(t, created, stored.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown result", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO quiz_feedback`).
			WillReturnError(&pq.Error{Code: fkViolation, Constraint: "quiz_feedback_quiz_result_id_fkey"})

		_, err := repo.UpsertFeedback(ctx, fb)
		assert.Equal(t, quiz.ErrResultNotFound, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
