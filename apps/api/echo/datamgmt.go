package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/penahikmah/sekolah/core/rbac"
)

func newDataDispatcher(deps ServerDeps) dispatcher {
	school, quiz := deps.SchoolSvc, deps.QuizSvc
	return dispatcher{
		endpoint: "data-management",
		metrics:  deps.Metrics,
		actions: map[string]actionFunc{
			"list_students":  listed("students", school.ListStudents),
			"get_student":    bound(rbac.RequireAdminOrGuru, "student", school.GetStudent),
			"create_student": bound(rbac.RequireAdmin, "student", school.CreateStudent),
			"update_student": bound(rbac.RequireAdmin, "student", school.UpdateStudent),
			"delete_student": bound(rbac.RequireAdmin, "", noResult(school.DeleteStudent)),

			"list_teachers":  listed("teachers", school.ListTeachers),
			"get_teacher":    bound(rbac.RequireAdminOrGuru, "teacher", school.GetTeacher),
			"create_teacher": bound(rbac.RequireAdmin, "teacher", school.CreateTeacher),
			"update_teacher": bound(rbac.RequireAdmin, "teacher", school.UpdateTeacher),
			"delete_teacher": bound(rbac.RequireAdmin, "", noResult(school.DeleteTeacher)),

			"list_classes": listed("classes", school.ListClasses),
			"get_class":    bound(rbac.RequireAdminOrGuru, "class", school.GetClass),
			"create_class": bound(rbac.RequireAdmin, "class", school.CreateClass),
			"update_class": bound(rbac.RequireAdmin, "class", school.UpdateClass),
			"delete_class": bound(rbac.RequireAdmin, "", noResult(school.DeleteClass)),

			"add_student_to_class":      bound(rbac.RequireAdmin, "", noResult(school.AddStudentToClass)),
			"remove_student_from_class": bound(rbac.RequireAdmin, "", noResult(school.RemoveStudentFromClass)),
			"link_student_user":         bound(rbac.RequireAdmin, "", school.LinkStudentUser),
			"link_teacher_user":         bound(rbac.RequireAdmin, "", school.LinkTeacherUser),

			"export_students": listed("rows", school.ExportStudents),
			"export_teachers": listed("rows", school.ExportTeachers),
			"import_students": bound(rbac.RequireAdmin, "imported", school.ImportStudents),
			"import_teachers": bound(rbac.RequireAdmin, "imported", school.ImportTeachers),

			"list_quizzes":   listed("quizzes", quiz.ListQuizzes),
			"create_quiz":    bound(rbac.RequireAdminOrGuru, "quiz_id", quiz.CreateQuiz),
			"submit_quiz":    bound(anyCaller, "result", quiz.Submit),
			"get_my_results": listed("results", quiz.MyResults),
		},
	}
}

// guard is the minimum tier of an action, as enforced by its service call.
type guard func(rbac.RoleSet) error

// anyCaller guards actions open to every authenticated caller.
func anyCaller(rbac.RoleSet) error { return nil }

// bound adapts a service call taking one decoded input into an actionFunc.
// Undecodable parameters are reported only to callers passing g.
// The result is returned under key, or as {"success": true} when key is empty.
func bound[In, Out any](g guard, key string, call func(context.Context, rbac.Caller, In) (Out, error)) actionFunc {
	return func(ctx echo.Context, caller rbac.Caller, req actionRequest) (interface{}, error) {
		var in In
		if err := req.Bind(&in); err != nil {
			if gErr := g(caller.Roles); gErr != nil {
				return nil, gErr
			}
			return nil, err
		}
		out, err := call(ctx.Request().Context(), caller, in)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return success, nil
		}
		return echo.Map{key: out}, nil
	}
}

// listed adapts a parameterless service call into an actionFunc.
func listed[Out any](key string, call func(context.Context, rbac.Caller) (Out, error)) actionFunc {
	return func(ctx echo.Context, caller rbac.Caller, _ actionRequest) (interface{}, error) {
		out, err := call(ctx.Request().Context(), caller)
		if err != nil {
			return nil, err
		}
		return echo.Map{key: out}, nil
	}
}

func noResult[In any](call func(context.Context, rbac.Caller, In) error) func(context.Context, rbac.Caller, In) (struct{}, error) {
	return func(ctx context.Context, caller rbac.Caller, in In) (struct{}, error) {
		return struct{}{}, call(ctx, caller, in)
	}
}
