package inmemdb

import (
	"sync"
	"time"

	"github.com/penahikmah/sekolah/core/quiz"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/school"
	"github.com/penahikmah/sekolah/core/user"
)

type permKey struct {
	role       rbac.Role
	resourceID string
	action     rbac.Action
}

type quizRow struct {
	id        string
	subjectID string
	title     string
	createdAt time.Time
}

// DB is a process-local store. A single lock guards every table so multi-table writes are atomic.
type DB struct {
	mu sync.RWMutex

	users       map[string]user.User
	userRoles   map[string]rbac.RoleSet
	resources   map[string]rbac.Resource
	permissions map[permKey]bool

	students      map[string]school.Student
	teachers      map[string]school.Teacher
	classes       map[string]school.Class
	classStudents map[string]map[string]struct{} // {classID: {studentID}}

	subjects  map[string]string // {id: name}
	quizzes   map[string]quizRow
	questions map[string][]quiz.Question // {quizID: questions}
	results   map[string]quiz.Result
	feedback  map[string]quiz.Feedback // {resultID: feedback}
}

// NewDB returns an empty store seeded with the core resources.
func NewDB() *DB {
	db := &DB{}
	db.Reset()
	return db
}

// Reset drops every row and re-seeds the core resources.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = make(map[string]user.User)
	db.userRoles = make(map[string]rbac.RoleSet)
	db.resources = make(map[string]rbac.Resource)
	db.permissions = make(map[permKey]bool)
	db.students = make(map[string]school.Student)
	db.teachers = make(map[string]school.Teacher)
	db.classes = make(map[string]school.Class)
	db.classStudents = make(map[string]map[string]struct{})
	db.subjects = make(map[string]string)
	db.quizzes = make(map[string]quizRow)
	db.questions = make(map[string][]quiz.Question)
	db.results = make(map[string]quiz.Result)
	db.feedback = make(map[string]quiz.Feedback)

	ts := now()
	for _, res := range rbac.CoreResources {
		res.CreatedAt = ts
		db.resources[res.ID] = res
		for _, p := range rbac.SeedPermissions(res.ID) {
			db.permissions[permKey{p.Role, p.ResourceID, p.Action}] = p.Allowed
		}
	}
}

func now() time.Time { return time.Now().UTC() }
