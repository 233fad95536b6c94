package quiz

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
)

var ErrNoQuestions = core.NewValidationError(errors.New("quiz has no questions"))

type (
	Repository interface {
		// CreateQuiz stores the quiz, its questions and options in one transaction.
		CreateQuiz(ctx context.Context, subjectName, quizID, title string, questions []Question) error
		QueryQuizzes(ctx context.Context) ([]Summary, error)
		// GetQuizQuestions returns the answer key of a quiz; ErrQuizNotFound when unknown.
		GetQuizQuestions(ctx context.Context, quizID string) ([]Question, error)

		CreateResult(ctx context.Context, r Result) error
		GetResult(ctx context.Context, id string) (ResultDetail, error)
		// QueryAllResults returns every result, newest first.
		QueryAllResults(ctx context.Context) ([]ResultDetail, error)
		// QueryUserResults returns the results of one user, newest first.
		QueryUserResults(ctx context.Context, userID string) ([]ResultDetail, error)
		// UpsertFeedback keeps one feedback per result and returns the stored row.
		UpsertFeedback(ctx context.Context, fb Feedback) (Feedback, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, validate *validator.Validate, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, validate: validate, mailSvc: mailSvc}
}

// CreateQuiz is open to teachers and admins.
func (svc *Service) CreateQuiz(ctx context.Context, caller rbac.Caller, nq NewQuiz) (string, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return "", err
	}
	nq.Title = core.CleanString(nq.Title)
	nq.SubjectName = core.CleanString(nq.SubjectName)
	if err := svc.validate.Struct(nq); err != nil {
		return "", err
	}

	quizID := uuid.New().String()
	questions := make([]Question, 0, len(nq.Questions))
	for i, nqu := range nq.Questions {
		qu := Question{
			ID:       uuid.New().String(),
			QuizID:   quizID,
			Prompt:   core.CleanString(nqu.Prompt),
			Position: i + 1,
		}
		for _, no := range nqu.Options {
			qu.Options = append(qu.Options, Option{
				ID:         uuid.New().String(),
				QuestionID: qu.ID,
				Label:      core.CleanString(no.Label),
				IsCorrect:  no.IsCorrect,
			})
		}
		questions = append(questions, qu)
	}

	if err := svc.repo.CreateQuiz(ctx, nq.SubjectName, quizID, nq.Title, questions); err != nil {
		return "", errors.Wrap(err, "creating quiz")
	}
	return quizID, nil
}

// ListQuizzes returns every quiz with the caller's best score percentage.
func (svc *Service) ListQuizzes(ctx context.Context, caller rbac.Caller) ([]Summary, error) {
	quizzes, err := svc.repo.QueryQuizzes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	results, err := svc.repo.QueryUserResults(ctx, caller.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}

	best := make(map[string]int, len(results))
	for _, r := range results {
		pct := Percentage(r.Score, r.TotalQuestions)
		if prev, ok := best[r.QuizID]; !ok || pct > prev {
			best[r.QuizID] = pct
		}
	}
	for i := range quizzes {
		if pct, ok := best[quizzes[i].ID]; ok {
			quizzes[i].BestScorePct = null.IntFrom(pct)
		}
	}
	return quizzes, nil
}

// Submit scores the answers against the answer key and stores the caller's result.
// Unanswered and unknown questions count as wrong.
func (svc *Service) Submit(ctx context.Context, caller rbac.Caller, sub Submission) (Result, error) {
	if err := svc.validate.Struct(sub); err != nil {
		return Result{}, err
	}
	questions, err := svc.repo.GetQuizQuestions(ctx, sub.QuizID)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting quiz questions")
	}
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	var score int
	for _, qu := range questions {
		chosen, ok := sub.Answers[qu.ID]
		if !ok {
			continue
		}
		for _, opt := range qu.Options {
			if opt.ID == chosen && opt.IsCorrect {
				score++
				break
			}
		}
	}

	r := Result{
		ID:             uuid.New().String(),
		QuizID:         sub.QuizID,
		UserID:         caller.ID,
		Score:          score,
		TotalQuestions: len(questions),
		CompletedAt:    time.Now().UTC(),
	}
	if err = svc.repo.CreateResult(ctx, r); err != nil {
		return Result{}, errors.Wrap(err, "creating result")
	}
	return r, nil
}

func (svc *Service) MyResults(ctx context.Context, caller rbac.Caller) ([]ResultDetail, error) {
	results, err := svc.repo.QueryUserResults(ctx, caller.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	return decorate(results), nil
}

// ResultsForFeedback lists every result, newest first, for mentors to review.
func (svc *Service) ResultsForFeedback(ctx context.Context, caller rbac.Caller) ([]ResultDetail, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return nil, err
	}
	results, err := svc.repo.QueryAllResults(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	return decorate(results), nil
}

func decorate(results []ResultDetail) []ResultDetail {
	for i := range results {
		if results[i].StudentName == "" {
			results[i].StudentName = UnknownStudent
		}
		results[i].Percentage = Percentage(results[i].Score, results[i].TotalQuestions)
	}
	return results
}

// UpsertFeedback records the caller's feedback on a result and notifies the student by email.
func (svc *Service) UpsertFeedback(ctx context.Context, caller rbac.Caller, nf NewFeedback) (Feedback, error) {
	if err := rbac.RequireAdminOrGuru(caller.Roles); err != nil {
		return Feedback{}, err
	}
	nf.Comment = core.CleanString(nf.Comment)
	if err := svc.validate.Struct(nf); err != nil {
		return Feedback{}, err
	}

	res, err := svc.repo.GetResult(ctx, nf.QuizResultID)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "getting result")
	}

	now := time.Now().UTC()
	fb := Feedback{
		ID:           uuid.New().String(),
		QuizResultID: nf.QuizResultID,
		MentorID:     caller.ID,
		Comment:      nf.Comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nf.AdjustedScore != nil {
		fb.AdjustedScore = null.IntFrom(*nf.AdjustedScore)
	}
	if fb, err = svc.repo.UpsertFeedback(ctx, fb); err != nil {
		return Feedback{}, errors.Wrap(err, "upserting feedback")
	}

	svc.notifyStudent(res, fb, caller)
	return fb, nil
}

func (svc *Service) notifyStudent(res ResultDetail, fb Feedback, mentor rbac.Caller) {
	if svc.mailSvc == nil || res.StudentEmail == "" {
		return
	}
	data := feedbackMailData{
		StudentName: res.StudentName,
		MentorName:  mentor.Email,
		QuizTitle:   res.QuizTitle,
		Comment:     fb.Comment,
	}
	if data.StudentName == "" {
		data.StudentName = res.StudentEmail
	}
	if data.MentorName == "" {
		data.MentorName = "Your mentor"
	}
	if fb.AdjustedScore.Valid {
		data.AdjustedScore = strconv.Itoa(fb.AdjustedScore.Int) + "%"
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: res.StudentName, Address: res.StudentEmail}},
		Subject:      fmt.Sprintf("New feedback on %q", res.QuizTitle),
		TemplateName: "feedback_received",
		TemplateData: data,
	})
}
