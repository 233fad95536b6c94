package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(_ context.Context, subjectName, quizID, title string, questions []quiz.Question) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var subjectID string
	if subjectName != "" {
		for id, name := range repo.db.subjects {
			if name == subjectName {
				subjectID = id
				break
			}
		}
		if subjectID == "" {
			subjectID = uuid.New().String()
			repo.db.subjects[subjectID] = subjectName
		}
	}
	repo.db.quizzes[quizID] = quizRow{id: quizID, subjectID: subjectID, title: title, createdAt: now()}
	repo.db.questions[quizID] = questions
	return nil
}

func (repo *quizRepository) subjectName(q quizRow) null.String {
	name, ok := repo.db.subjects[q.subjectID]
	return null.NewString(name, ok)
}

func (repo *quizRepository) QueryQuizzes(_ context.Context) ([]quiz.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	quizzes := make([]quiz.Summary, 0, len(repo.db.quizzes))
	for _, q := range repo.db.quizzes {
		quizzes = append(quizzes, quiz.Summary{
			ID:            q.id,
			Title:         q.title,
			SubjectName:   repo.subjectName(q),
			QuestionCount: len(repo.db.questions[q.id]),
		})
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].Title < quizzes[j].Title })
	return quizzes, nil
}

func (repo *quizRepository) GetQuizQuestions(_ context.Context, quizID string) ([]quiz.Question, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.quizzes[quizID]; !ok {
		return nil, quiz.ErrQuizNotFound
	}
	questions := make([]quiz.Question, len(repo.db.questions[quizID]))
	copy(questions, repo.db.questions[quizID])
	return questions, nil
}

func (repo *quizRepository) CreateResult(_ context.Context, r quiz.Result) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.quizzes[r.QuizID]; !ok {
		return quiz.ErrQuizNotFound
	}
	repo.db.results[r.ID] = r
	return nil
}

// detail must be called with the lock held.
func (repo *quizRepository) detail(r quiz.Result) quiz.ResultDetail {
	rd := quiz.ResultDetail{Result: r}
	if usr, ok := repo.db.users[r.UserID]; ok {
		rd.StudentName = usr.FullName
		rd.StudentEmail = usr.Email
	}
	if q, ok := repo.db.quizzes[r.QuizID]; ok {
		rd.QuizTitle = q.title
		rd.SubjectName = repo.subjectName(q)
	}
	if fb, ok := repo.db.feedback[r.ID]; ok {
		rd.Feedback = &fb
	}
	return rd
}

func (repo *quizRepository) GetResult(_ context.Context, id string) (quiz.ResultDetail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	r, ok := repo.db.results[id]
	if !ok {
		return quiz.ResultDetail{}, quiz.ErrResultNotFound
	}
	return repo.detail(r), nil
}

func (repo *quizRepository) QueryAllResults(_ context.Context) ([]quiz.ResultDetail, error) {
	return repo.queryResults(func(quiz.Result) bool { return true }), nil
}

func (repo *quizRepository) QueryUserResults(_ context.Context, userID string) ([]quiz.ResultDetail, error) {
	return repo.queryResults(func(r quiz.Result) bool { return r.UserID == userID }), nil
}

func (repo *quizRepository) queryResults(match func(quiz.Result) bool) []quiz.ResultDetail {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	results := make([]quiz.ResultDetail, 0)
	for _, r := range repo.db.results {
		if match(r) {
			results = append(results, repo.detail(r))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CompletedAt.After(results[j].CompletedAt) })
	return results
}

func (repo *quizRepository) UpsertFeedback(_ context.Context, fb quiz.Feedback) (quiz.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.results[fb.QuizResultID]; !ok {
		return quiz.Feedback{}, quiz.ErrResultNotFound
	}
	if prev, ok := repo.db.feedback[fb.QuizResultID]; ok {
		fb.ID = prev.ID
		fb.CreatedAt = prev.CreatedAt
	}
	repo.db.feedback[fb.QuizResultID] = fb
	return fb, nil
}
