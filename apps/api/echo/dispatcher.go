package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/penahikmah/sekolah/core/rbac"
	metricsvc "github.com/penahikmah/sekolah/services/metrics"
)

// actionFunc runs one action on behalf of caller and returns the success payload.
type actionFunc func(ctx echo.Context, caller rbac.Caller, req actionRequest) (interface{}, error)

// dispatcher routes the flat action requests of one endpoint to their handlers.
type dispatcher struct {
	endpoint string
	actions  map[string]actionFunc
	metrics  *metricsvc.Metrics
}

func (d dispatcher) handle(ctx echo.Context) error {
	start := time.Now()

	req, err := bindActionRequest(ctx)
	if err != nil {
		return err
	}
	if req.Action == "" {
		return errMissingAction
	}
	act, ok := d.actions[req.Action]
	if !ok {
		return newUnknownActionError(req.Action)
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	res, err := act(ctx, caller, req)
	if err != nil {
		d.metrics.ObserveAction(d.endpoint, req.Action, errorStatus(err), time.Since(start))
		return err
	}
	d.metrics.ObserveAction(d.endpoint, req.Action, http.StatusOK, time.Since(start))
	return ctx.JSON(http.StatusOK, res)
}

var success = echo.Map{"success": true}
