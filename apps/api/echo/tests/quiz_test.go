package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penahikmah/sekolah/core/quiz"
	"github.com/penahikmah/sekolah/core/rbac"
	emailsvc "github.com/penahikmah/sekolah/services/email"
)

func newQuizAction(title string) action {
	return action{
		"action":       "create_quiz",
		"title":        title,
		"subject_name": "Matematika",
		"questions": []action{
			{"prompt": "1 + 1 = ?", "options": []action{{"label": "2", "is_correct": true}, {"label": "3"}}},
			{"prompt": "2 x 3 = ?", "options": []action{{"label": "5"}, {"label": "6", "is_correct": true}}},
		},
	}
}

// answers picks the correct option of the first `right` questions and a wrong one for the others.
func answers(t *testing.T, quizID string, right int) map[string]string {
	questions, err := quizRepo.GetQuizQuestions(context.Background(), quizID)
	require.NoError(t, err)
	ans := make(map[string]string, len(questions))
	for i, qu := range questions {
		for _, opt := range qu.Options {
			if opt.IsCorrect == (i < right) {
				ans[qu.ID] = opt.ID
				break
			}
		}
	}
	return ans
}

func Test_quizApi(t *testing.T) {
	srv := setup(t)
	guru := createUser(t, "Pak Guru", "guru@test.id", rbac.RoleGuru)
	siswa := createUser(t, "Ani", "ani@test.id")
	other := createUser(t, "Budi", "budi@test.id")
	guruToken, siswaToken := getToken(t, guru), getToken(t, siswa)

	var created struct {
		QuizID string `json:"quiz_id"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, dataPath, guruToken, newQuizAction("Aritmetika"), &created))
	require.NotEmpty(t, created.QuizID)

	var quizzes struct {
		Quizzes []quiz.Summary `json:"quizzes"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, dataPath, siswaToken, action{"action": "list_quizzes"}, &quizzes))
	require.Len(t, quizzes.Quizzes, 1)
	assert.Equal(t, "Aritmetika", quizzes.Quizzes[0].Title)
	assert.Equal(t, "Matematika", quizzes.Quizzes[0].SubjectName.String)
	assert.Equal(t, 2, quizzes.Quizzes[0].QuestionCount)
	assert.False(t, quizzes.Quizzes[0].BestScorePct.Valid)

	var submitted struct {
		Result quiz.Result `json:"result"`
	}
	code := do(t, srv, dataPath, siswaToken, action{"action": "submit_quiz", "quiz_id": created.QuizID, "answers": answers(t, created.QuizID, 1)}, &submitted)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, submitted.Result.Score)
	assert.Equal(t, 2, submitted.Result.TotalQuestions)
	assert.Equal(t, siswa.ID, submitted.Result.UserID)

	code = do(t, srv, dataPath, siswaToken, action{"action": "submit_quiz", "quiz_id": created.QuizID, "answers": answers(t, created.QuizID, 2)}, nil)
	require.Equal(t, http.StatusOK, code)
	code = do(t, srv, dataPath, getToken(t, other), action{"action": "submit_quiz", "quiz_id": created.QuizID, "answers": map[string]string{}}, nil)
	require.Equal(t, http.StatusOK, code)

	quizzes.Quizzes = nil
	require.Equal(t, http.StatusOK, do(t, srv, dataPath, siswaToken, action{"action": "list_quizzes"}, &quizzes))
	assert.Equal(t, 100, quizzes.Quizzes[0].BestScorePct.Int)

	var mine struct {
		Results []quiz.ResultDetail `json:"results"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, dataPath, siswaToken, action{"action": "get_my_results"}, &mine))
	require.Len(t, mine.Results, 2)
	assert.ElementsMatch(t, []int{50, 100}, []int{mine.Results[0].Percentage, mine.Results[1].Percentage})
	assert.Equal(t, "Ani", mine.Results[0].StudentName)
	assert.Equal(t, "Aritmetika", mine.Results[0].QuizTitle)

	var review struct {
		Results []quiz.ResultDetail `json:"results"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, rbacPath, guruToken, action{"action": "get_quiz_results_for_feedback"}, &review))
	require.Len(t, review.Results, 3)
	resultID := submitted.Result.ID

	emailsvc.ResetSentMessages()
	var fb struct {
		Feedback quiz.Feedback `json:"feedback"`
	}
	code = do(t, srv, rbacPath, guruToken, action{
		"action": "upsert_feedback", "quiz_result_id": resultID, "comment": "Coba lagi soal nomor 2", "adjusted_score": 80,
	}, &fb)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, guru.ID, fb.Feedback.MentorID)
	assert.Equal(t, 80, fb.Feedback.AdjustedScore.Int)
	firstID := fb.Feedback.ID

	code = do(t, srv, rbacPath, guruToken, action{"action": "upsert_feedback", "quiz_result_id": resultID, "comment": "Sudah bagus"}, &fb)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, firstID, fb.Feedback.ID)
	assert.Equal(t, "Sudah bagus", fb.Feedback.Comment)
	assert.False(t, fb.Feedback.AdjustedScore.Valid)

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "ani@test.id", sent[0].To[0].Address)
	assert.Equal(t, "feedback_received", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "80%")
	assert.Contains(t, sent[1].TextContent, "Sudah bagus")

	mine.Results = nil
	require.Equal(t, http.StatusOK, do(t, srv, dataPath, siswaToken, action{"action": "get_my_results"}, &mine))
	var withFeedback int
	for _, r := range mine.Results {
		if r.Feedback != nil {
			withFeedback++
			assert.Equal(t, "Sudah bagus", r.Feedback.Comment)
		}
	}
	assert.Equal(t, 1, withFeedback)

	tests := []httpTest{
		{
			name: "siswa cannot author", path: dataPath, body: marchallObj(t, newQuizAction("X")), token: siswaToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "Forbidden: super_admin/admin/guru only"}),
		},
		{
			name: "quiz without questions", path: dataPath, body: []byte(`{"action":"create_quiz","title":"Kosong","questions":[]}`), token: guruToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown quiz", path: dataPath, token: siswaToken,
			body:     marchallObj(t, action{"action": "submit_quiz", "quiz_id": uuid.New().String(), "answers": map[string]string{}}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "quiz not found"}),
		},
		{
			name: "token without subject reads no results", path: dataPath, body: []byte(`{"action":"get_my_results"}`), token: signClaims(t, "", ""),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated),
		},
		{
			name: "token without subject cannot submit", path: dataPath, token: signClaims(t, "", ""),
			body:     marchallObj(t, action{"action": "submit_quiz", "quiz_id": created.QuizID, "answers": map[string]string{}}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated),
		},
		{
			name: "siswa cannot review", path: rbacPath, body: []byte(`{"action":"get_quiz_results_for_feedback"}`), token: siswaToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "Forbidden: super_admin/admin/guru only"}),
		},
		{
			name: "siswa cannot give feedback", path: rbacPath, token: siswaToken,
			body:     marchallObj(t, action{"action": "upsert_feedback", "quiz_result_id": resultID, "comment": "self review"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "Forbidden: super_admin/admin/guru only"}),
		},
		{
			name: "adjusted score is a percentage", path: rbacPath, token: guruToken,
			body:     marchallObj(t, action{"action": "upsert_feedback", "quiz_result_id": resultID, "comment": "ok", "adjusted_score": 150}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown result", path: rbacPath, token: guruToken,
			body:     marchallObj(t, action{"action": "upsert_feedback", "quiz_result_id": uuid.New().String(), "comment": "ok"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "quiz result not found"}),
		},
	}
	runHTTPTests(t, srv, tests)
}
