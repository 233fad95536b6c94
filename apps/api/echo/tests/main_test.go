package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	. "github.com/penahikmah/sekolah/apps/api/echo"
	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/quiz"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/school"
	"github.com/penahikmah/sekolah/core/user"
	emailsvc "github.com/penahikmah/sekolah/services/email"
	inmemdb "github.com/penahikmah/sekolah/storage/database/inmem"
	"github.com/penahikmah/sekolah/tests"
)

const (
	rbacPath = "/v1/rbac"
	dataPath = "/v1/data-management"
)

var (
	db         *inmemdb.DB
	usrRepo    user.Repository
	roleRepo   rbac.Repository
	schoolRepo school.Repository
	quizRepo   quiz.Repository

	errMissingToken     = httpErr{Error: "missing or malformed jwt"}
	errNotAuthenticated = httpErr{Error: "user not authenticated"}
)

func setup(t *testing.T) *Server {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)
	emailsvc.ResetSentMessages()

	// set up DB & repos
	db = inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	roleRepo = inmemdb.NewRBACRepository(db)
	schoolRepo = inmemdb.NewSchoolRepository(db)
	quizRepo = inmemdb.NewQuizRepository(db)

	// set up services
	validate, translator := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	// set up server
	srv := NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			RBACSvc:    rbac.NewService(roleRepo, validate),
			UserSvc:    user.NewService(usrRepo, roleRepo, validate),
			SchoolSvc:  school.NewService(schoolRepo, validate, conf),
			QuizSvc:    quiz.NewService(quizRepo, validate, mailSvc),
			Validate:   validate,
			Translator: translator,
		},
	)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func createUser(t *testing.T, name, email string, roles ...rbac.Role) user.User {
	return testutil.CreateUser(t, usrRepo, roleRepo, name, email, roles...)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

// do sends an action request and decodes the JSON response into dest (when not nil).
func do(t *testing.T, srv *Server, path, token string, action map[string]interface{}, dest interface{}) int {
	req, rec := newAuthRequest(path, token, marchallObj(t, action))
	srv.ServeHTTP(rec, req)
	if dest != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
			t.Fatalf("do(%v) failed to decode %q: %v", action["action"], rec.Body.String(), err)
		}
	}
	return rec.Code
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr, "sekolah-test", testutil.NewConfig().JWTExpirationDelta)
	token, err := GenerateToken(claims, testutil.JWTSecret)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// signClaims signs a token for an arbitrary subject with the test secret.
func signClaims(t *testing.T, subject, email string) string {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{Subject: subject, ExpiresAt: time.Now().Add(time.Hour).Unix()},
		Email:          email,
	}
	token, err := GenerateToken(claims, testutil.JWTSecret)
	if err != nil {
		t.Fatalf("signClaims() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, srv *Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
