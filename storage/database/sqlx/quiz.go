package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/quiz"
	"github.com/penahikmah/sekolah/storage/database"
)

type quizRepository struct {
	db core.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db core.DB) *quizRepository {
	return &quizRepository{db: db}
}

var quizConstraints = constraintErrs{
	"quiz_results_quiz_id_fkey":         quiz.ErrQuizNotFound,
	"quiz_feedback_quiz_result_id_fkey": quiz.ErrResultNotFound,
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, subjectName, quizID, title string, questions []quiz.Question) error {
	return database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var subjectID null.String
		if subjectName != "" {
			// DO UPDATE so that RETURNING yields the id of an existing subject too
			err := tx.GetContext(ctx, &subjectID, `
				INSERT INTO subjects (id, name) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`,
				uuid.New().String(), subjectName)
			if err != nil {
				return trapErr(err, "upserting subject", nil, nil)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO quizzes (id, subject_id, title, created_at) VALUES ($1, $2, $3, $4)`,
			quizID, subjectID, title, time.Now().UTC())
		if err != nil {
			return trapErr(err, "inserting quiz", nil, nil)
		}
		if len(questions) == 0 {
			return nil
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO quiz_questions (id, quiz_id, prompt, position)
			VALUES (:id, :quiz_id, :prompt, :position)`,
			questions)
		if err != nil {
			return trapErr(err, "inserting questions", nil, nil)
		}

		var options []quiz.Option
		for _, qu := range questions {
			options = append(options, qu.Options...)
		}
		if len(options) == 0 {
			return nil
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO quiz_options (id, question_id, label, is_correct)
			VALUES (:id, :question_id, :label, :is_correct)`,
			options)
		return trapErr(err, "inserting options", nil, nil)
	})
}

func (repo *quizRepository) QueryQuizzes(ctx context.Context) ([]quiz.Summary, error) {
	quizzes := make([]quiz.Summary, 0)
	ord := core.DBOrdering{Field: "q.title", Ascending: true}
	err := repo.db.SelectContext(ctx, &quizzes, `
		SELECT q.id, q.title, s.name AS subject_name,
			(SELECT count(*) FROM quiz_questions qq WHERE qq.quiz_id = q.id) AS question_count
		FROM quizzes q
		LEFT JOIN subjects s ON s.id = q.subject_id
		ORDER BY `+ord.String())
	return quizzes, trapErr(err, "selecting quizzes", nil, nil)
}

func (repo *quizRepository) GetQuizQuestions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	var found bool
	if err := repo.db.GetContext(ctx, &found, `SELECT true FROM quizzes WHERE id = $1`, quizID); err != nil {
		return nil, trapErr(err, "selecting quiz", quiz.ErrQuizNotFound, nil)
	}

	questions := make([]quiz.Question, 0)
	err := repo.db.SelectContext(ctx, &questions,
		`SELECT id, quiz_id, prompt, position FROM quiz_questions WHERE quiz_id = $1 ORDER BY position`, quizID)
	if err != nil {
		return nil, trapErr(err, "selecting questions", nil, nil)
	}

	var options []quiz.Option
	err = repo.db.SelectContext(ctx, &options, `
		SELECT o.id, o.question_id, o.label, o.is_correct
		FROM quiz_options o
		JOIN quiz_questions qq ON qq.id = o.question_id
		WHERE qq.quiz_id = $1`,
		quizID)
	if err != nil {
		return nil, trapErr(err, "selecting options", nil, nil)
	}
	byQuestion := make(map[string][]quiz.Option, len(questions))
	for _, opt := range options {
		byQuestion[opt.QuestionID] = append(byQuestion[opt.QuestionID], opt)
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
	}
	return questions, nil
}

func (repo *quizRepository) CreateResult(ctx context.Context, r quiz.Result) error {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO quiz_results (id, quiz_id, user_id, score, total_questions, completed_at)
		VALUES (:id, :quiz_id, :user_id, :score, :total_questions, :completed_at)`,
		r)
	return trapErr(err, "inserting result", nil, quizConstraints)
}

// resultRow is a result joined with its owner, quiz and optional feedback.
type resultRow struct {
	quiz.ResultDetail
	FeedbackID    null.String `db:"feedback_id"`
	MentorID      null.String `db:"mentor_id"`
	Comment       null.String `db:"comment"`
	AdjustedScore null.Int    `db:"adjusted_score"`
	FbCreatedAt   null.Time   `db:"feedback_created_at"`
	FbUpdatedAt   null.Time   `db:"feedback_updated_at"`
}

func (row resultRow) toDetail() quiz.ResultDetail {
	rd := row.ResultDetail
	if row.FeedbackID.Valid {
		rd.Feedback = &quiz.Feedback{
			ID:            row.FeedbackID.String,
			QuizResultID:  rd.ID,
			MentorID:      row.MentorID.String,
			Comment:       row.Comment.String,
			AdjustedScore: row.AdjustedScore,
			CreatedAt:     row.FbCreatedAt.Time,
			UpdatedAt:     row.FbUpdatedAt.Time,
		}
	}
	return rd
}

const resultSelect = `
	SELECT r.id, r.quiz_id, r.user_id, r.score, r.total_questions, r.completed_at,
		COALESCE(u.full_name, '') AS student_name, COALESCE(u.email, '') AS student_email,
		COALESCE(q.title, '') AS quiz_title, s.name AS subject_name,
		f.id AS feedback_id, f.mentor_id, f.comment, f.adjusted_score,
		f.created_at AS feedback_created_at, f.updated_at AS feedback_updated_at
	FROM quiz_results r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN quizzes q ON q.id = r.quiz_id
	LEFT JOIN subjects s ON s.id = q.subject_id
	LEFT JOIN quiz_feedback f ON f.quiz_result_id = r.id`

func (repo *quizRepository) GetResult(ctx context.Context, id string) (quiz.ResultDetail, error) {
	var row resultRow
	if err := repo.db.GetContext(ctx, &row, resultSelect+` WHERE r.id = $1`, id); err != nil {
		return quiz.ResultDetail{}, trapErr(err, "selecting result", quiz.ErrResultNotFound, nil)
	}
	return row.toDetail(), nil
}

var newestFirst = core.DBOrdering{Field: "r.completed_at", Ascending: false}

func (repo *quizRepository) QueryAllResults(ctx context.Context) ([]quiz.ResultDetail, error) {
	return repo.queryResults(ctx, resultSelect+` ORDER BY `+newestFirst.String())
}

func (repo *quizRepository) QueryUserResults(ctx context.Context, userID string) ([]quiz.ResultDetail, error) {
	return repo.queryResults(ctx, resultSelect+` WHERE r.user_id = $1 ORDER BY `+newestFirst.String(), userID)
}

func (repo *quizRepository) queryResults(ctx context.Context, query string, args ...interface{}) ([]quiz.ResultDetail, error) {
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "selecting results", nil, nil)
	}

	results := make([]quiz.ResultDetail, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDetail())
	}
	return results, nil
}

func (repo *quizRepository) UpsertFeedback(ctx context.Context, fb quiz.Feedback) (quiz.Feedback, error) {
	var stored quiz.Feedback
	err := repo.db.GetContext(ctx, &stored, `
		INSERT INTO quiz_feedback (id, quiz_result_id, mentor_id, comment, adjusted_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (quiz_result_id) DO UPDATE SET
			mentor_id = EXCLUDED.mentor_id,
			comment = EXCLUDED.comment,
			adjusted_score = EXCLUDED.adjusted_score,
			updated_at = EXCLUDED.updated_at
		RETURNING id, quiz_result_id, mentor_id, comment, adjusted_score, created_at, updated_at`,
		fb.ID, fb.QuizResultID, fb.MentorID, fb.Comment, fb.AdjustedScore, fb.CreatedAt, fb.UpdatedAt)
	return stored, trapErr(err, "upserting feedback", nil, quizConstraints)
}
