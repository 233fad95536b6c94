package quiz

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
)

// UnknownStudent names results whose owner has no profile name.
const UnknownStudent = "Unknown"

var (
	ErrQuizNotFound   = core.NewNotFoundError("quiz not found")
	ErrResultNotFound = core.NewNotFoundError("quiz result not found")
)

type (
	// Summary is a quiz as listed to students, with the caller's best attempt.
	Summary struct {
		ID            string      `json:"id" db:"id"`
		Title         string      `json:"title" db:"title"`
		SubjectName   null.String `json:"subject_name" db:"subject_name"`
		QuestionCount int         `json:"question_count" db:"question_count"`
		BestScorePct  null.Int    `json:"best_score_pct" db:"-"`
	}

	Question struct {
		ID       string   `json:"id" db:"id"`
		QuizID   string   `json:"quiz_id" db:"quiz_id"`
		Prompt   string   `json:"prompt" db:"prompt"`
		Position int      `json:"position" db:"position"`
		Options  []Option `json:"options" db:"-"`
	}

	Option struct {
		ID         string `json:"id" db:"id"`
		QuestionID string `json:"question_id" db:"question_id"`
		Label      string `json:"label" db:"label"`
		IsCorrect  bool   `json:"-" db:"is_correct"`
	}

	Result struct {
		ID             string    `json:"id" db:"id"`
		QuizID         string    `json:"quiz_id" db:"quiz_id"`
		UserID         string    `json:"user_id" db:"user_id"`
		Score          int       `json:"score" db:"score"`
		TotalQuestions int       `json:"total_questions" db:"total_questions"`
		CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
	}

	Feedback struct {
		ID            string    `json:"id" db:"id"`
		QuizResultID  string    `json:"quiz_result_id" db:"quiz_result_id"`
		MentorID      string    `json:"mentor_id" db:"mentor_id"`
		Comment       string    `json:"comment" db:"comment"`
		AdjustedScore null.Int  `json:"adjusted_score" db:"adjusted_score"`
		CreatedAt     time.Time `json:"created_at" db:"created_at"`
		UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	}

	// ResultDetail is a Result joined with its student, quiz, subject and feedback.
	ResultDetail struct {
		Result
		StudentName  string      `json:"student_name" db:"student_name"`
		StudentEmail string      `json:"-" db:"student_email"`
		QuizTitle    string      `json:"quiz_title" db:"quiz_title"`
		SubjectName  null.String `json:"subject_name" db:"subject_name"`
		Percentage   int         `json:"percentage" db:"-"`
		Feedback     *Feedback   `json:"feedback" db:"-"`
	}
)

// Percentage is score/total rounded to the nearest whole percent.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

type NewOption struct {
	Label     string `json:"label" validate:"required,notblank,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

type NewQuestion struct {
	Prompt  string      `json:"prompt" validate:"required,notblank,max=2000"`
	Options []NewOption `json:"options" validate:"required,min=2,dive"`
}

// NewQuiz contains information needed to author a quiz. SubjectName is created when unknown.
type NewQuiz struct {
	Title       string        `json:"title" validate:"required,notblank,max=200"`
	SubjectName string        `json:"subject_name" validate:"max=100"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

// Submission maps question ids to the chosen option ids.
type Submission struct {
	QuizID  string            `json:"quiz_id" validate:"required,uuid"`
	Answers map[string]string `json:"answers" validate:"required"`
}

type NewFeedback struct {
	QuizResultID  string `json:"quiz_result_id" validate:"required,uuid"`
	Comment       string `json:"comment" validate:"required,notblank,max=2000"`
	AdjustedScore *int   `json:"adjusted_score" validate:"omitempty,min=0,max=100"` // percent
}

type feedbackMailData struct {
	StudentName   string
	MentorName    string
	QuizTitle     string
	Comment       string
	AdjustedScore string
}
