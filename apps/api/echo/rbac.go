package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/penahikmah/sekolah/core/rbac"
)

type rbacApi struct {
	svc *rbac.Service
}

func newRBACDispatcher(deps ServerDeps) dispatcher {
	api := rbacApi{svc: deps.RBACSvc}
	return dispatcher{
		endpoint: "rbac",
		metrics:  deps.Metrics,
		actions: map[string]actionFunc{
			"get_my_roles":      api.myRoles,
			"list_users":        listed("users", deps.UserSvc.List),
			"assign_role":       bound(rbac.RequireAdmin, "", noResult(api.svc.AssignRole)),
			"remove_role":       bound(rbac.RequireAdmin, "", noResult(api.svc.RemoveRole)),
			"get_permissions":   api.permissions,
			"update_permission": bound(rbac.RequireSuperAdmin, "", noResult(api.svc.SetAllowed)),
			"add_resource":      api.addResource,
			"delete_resource":   bound(rbac.RequireSuperAdmin, "", noResult(api.svc.DeleteResource)),
			"check_permission":  bound(anyCaller, "allowed", api.svc.IsAllowed),

			"get_quiz_results_for_feedback": listed("results", deps.QuizSvc.ResultsForFeedback),
			"upsert_feedback":               bound(rbac.RequireAdminOrGuru, "feedback", deps.QuizSvc.UpsertFeedback),
		},
	}
}

func (api rbacApi) myRoles(_ echo.Context, caller rbac.Caller, _ actionRequest) (interface{}, error) {
	return echo.Map{"roles": api.svc.MyRoles(caller)}, nil
}

// permissions returns the matrix as {"resources": [...], "permissions": [...]}.
func (api rbacApi) permissions(ctx echo.Context, caller rbac.Caller, _ actionRequest) (interface{}, error) {
	matrix, err := api.svc.Matrix(ctx.Request().Context(), caller)
	if err != nil {
		return nil, err
	}
	return matrix, nil
}

func (api rbacApi) addResource(ctx echo.Context, caller rbac.Caller, req actionRequest) (interface{}, error) {
	var nr rbac.NewResource
	if err := req.Bind(&nr); err != nil {
		if gErr := rbac.RequireSuperAdmin(caller.Roles); gErr != nil {
			return nil, gErr
		}
		return nil, err
	}
	res, perms, err := api.svc.AddResource(ctx.Request().Context(), caller, nr)
	if err != nil {
		return nil, err
	}
	return echo.Map{"resource": res, "permissions": perms}, nil
}
