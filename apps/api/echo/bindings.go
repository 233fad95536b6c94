package echoapi

import (
	"encoding/json"
	"io/ioutil"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// actionRequest is a flat JSON body: {"action": "...", ...params}.
type actionRequest struct {
	Action string `json:"action"`
	body   []byte
}

func bindActionRequest(ctx echo.Context) (actionRequest, error) {
	var req actionRequest

	body, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return req, errors.Wrap(err, "reading request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if err = json.Unmarshal(body, &req); err != nil {
		return req, errInvalidBody
	}
	req.Action = strings.TrimSpace(req.Action)
	req.body = body
	return req, nil
}

// Bind decodes the action parameters into v. Unknown keys (including "action") are ignored.
func (req actionRequest) Bind(v interface{}) error {
	if err := json.Unmarshal(req.body, v); err != nil {
		return errInvalidBody
	}
	return nil
}
